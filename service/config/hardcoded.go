package config

type hardcodedService struct {
}

// NewHardCoded returns the settings the goggles prototype ships with.
func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetStreamURL() string {
	// ESP32-CAM on the goggles hotspot
	return "http://192.168.136.122/stream"
}

func (svc *hardcodedService) GetStreamTimeout() int {
	return 10
}

func (svc *hardcodedService) GetStreamChunkSize() int {
	return 1024
}

func (svc *hardcodedService) GetSpeechCommand() string {
	return "espeak-ng"
}

func (svc *hardcodedService) GetSpeechVoice() string {
	return "en"
}

func (svc *hardcodedService) GetSpeechRate() int {
	// words per minute
	return 150
}

func (svc *hardcodedService) GetSpeechVolume() float64 {
	return 1.0
}

func (svc *hardcodedService) GetSpeechQueueSize() int {
	return 10
}

func (svc *hardcodedService) GetDisplayType() string {
	return DisplayWindow
}

func (svc *hardcodedService) GetDisplayAddress() string {
	return ":8090"
}

func (svc *hardcodedService) GetJournalPath() string {
	// An empty path disables the journal
	return ""
}

func (svc *hardcodedService) GetLogFolder() string {
	return "./logs"
}

func (svc *hardcodedService) GetSnapshotsFolder() string {
	// An empty folder disables snapshots
	return ""
}

func (svc *hardcodedService) GetPipelineParameters(name string) PipelineParameters {
	switch name {
	case ReaderPipelineName:
		return PipelineParameters{
			ModelPath:      "./models/frozen_east_text_detection.pb",
			RecognizerPath: "./models/crnn.onnx",
			MinInterval:    5,
			GatePerception: true,
			AsyncSpeech:    true,
			Rotation:       RotateClockwise,
			MessageFormat:  "%s",
			WindowTitle:    "Live OCR with Text-to-Speech",
		}

	case ObjectsPipelineName:
		return PipelineParameters{
			ModelPath:           "./models/yolo11s.onnx",
			LabelsPath:          "./models/coco.names",
			ConfidenceThreshold: 0.5,
			MinInterval:         5,
			Novelty:             true,
			FirstOnly:           true,
			Rotation:            RotateCounterClockwise,
			MessageFormat:       "%s detected",
			WindowTitle:         "ESP32-CAM Object Detection",
		}

	case CashPipelineName:
		return PipelineParameters{
			ModelPath:           "./models/best.onnx",
			LabelsPath:          "./models/cash.names",
			ConfidenceThreshold: 0.7,
			MinInterval:         10,
			Rotation:            RotateClockwise,
			MessageFormat:       "%s rupees is detected",
			IgnoredLabels:       []string{"fake"},
			WindowTitle:         "ESP32-CAM Cash Detection",
		}
	}

	return PipelineParameters{}
}
