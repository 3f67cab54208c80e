package config

const (
	ReaderPipelineName  = "reader"
	ObjectsPipelineName = "objects"
	CashPipelineName    = "cash"
)

const (
	RotateNone             = "none"
	RotateClockwise        = "cw"
	RotateCounterClockwise = "ccw"
	Rotate180              = "180"
)

const (
	DisplayWindow    = "window"
	DisplayWebsocket = "websocket"
	DisplayHeadless  = "none"
)

type PipelineParameters struct {
	ModelPath           string   // detector model, or the text detector for the reader
	RecognizerPath      string   // text recognizer model (reader only)
	LabelsPath          string   // class names, one per line
	ConfidenceThreshold float32  // minimum confidence to draw/announce
	MinInterval         int      // seconds between announcements
	Novelty             bool     // require a new label for each announcement
	GatePerception      bool     // run perception only when the gate opens
	FirstOnly           bool     // examine only the top detection per frame
	AsyncSpeech         bool     // speak through the utterance queue
	Rotation            string   // one of the Rotate* values
	MessageFormat       string   // fmt format with one %s for the label
	IgnoredLabels       []string // labels never drawn nor announced
	WindowTitle         string
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetStreamURL() string
	GetStreamTimeout() int
	GetStreamChunkSize() int
	GetSpeechCommand() string
	GetSpeechVoice() string
	GetSpeechRate() int
	GetSpeechVolume() float64
	GetSpeechQueueSize() int
	GetDisplayType() string
	GetDisplayAddress() string
	GetJournalPath() string
	GetLogFolder() string
	GetSnapshotsFolder() string
	GetPipelineParameters(name string) PipelineParameters
}
