package sync

type OpType string

const (
	OpWriteRemote  OpType = "WriteRemote"
	OpWriteLocal   OpType = "WriteLocal"
	OpDeleteRemote OpType = "DeleteRemote"
	OpDeleteLocal  OpType = "DeleteLocal"
	OpCleanup      OpType = "Cleanup"
)

// Direction is the authoritative direction of a run.
type Direction string

const (
	DirectionPull Direction = "pull"
	DirectionPush Direction = "push"
)
