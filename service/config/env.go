package config

import (
	"os"
	"strconv"
	"strings"
)

type envVarsService struct {
	Fallback IService
}

// NewEnvVars reads settings from environment variables and falls back to
// the given service for anything unset or unparsable.
//
// Pipeline parameters are overridden per pipeline with the upper-cased
// pipeline name as prefix, e.g. OBJECTS_CONFIDENCE_THRESHOLD.
func NewEnvVars(fallback IService) IService {
	return &envVarsService{
		Fallback: fallback,
	}
}

func (svc *envVarsService) GetModeMaxShutdownTime() int {
	return getEnvAsInt("MODE_MAX_SHUTDOWN_TIME", svc.Fallback.GetModeMaxShutdownTime())
}

func (svc *envVarsService) GetStreamURL() string {
	return getEnv("STREAM_URL", svc.Fallback.GetStreamURL())
}

func (svc *envVarsService) GetStreamTimeout() int {
	return getEnvAsInt("STREAM_TIMEOUT", svc.Fallback.GetStreamTimeout())
}

func (svc *envVarsService) GetStreamChunkSize() int {
	return getEnvAsInt("STREAM_CHUNK_SIZE", svc.Fallback.GetStreamChunkSize())
}

func (svc *envVarsService) GetSpeechCommand() string {
	return getEnv("SPEECH_COMMAND", svc.Fallback.GetSpeechCommand())
}

func (svc *envVarsService) GetSpeechVoice() string {
	return getEnv("SPEECH_VOICE", svc.Fallback.GetSpeechVoice())
}

func (svc *envVarsService) GetSpeechRate() int {
	return getEnvAsInt("SPEECH_RATE", svc.Fallback.GetSpeechRate())
}

func (svc *envVarsService) GetSpeechVolume() float64 {
	return getEnvAsFloat("SPEECH_VOLUME", svc.Fallback.GetSpeechVolume())
}

func (svc *envVarsService) GetSpeechQueueSize() int {
	return getEnvAsInt("SPEECH_QUEUE_SIZE", svc.Fallback.GetSpeechQueueSize())
}

func (svc *envVarsService) GetDisplayType() string {
	return getEnv("DISPLAY_TYPE", svc.Fallback.GetDisplayType())
}

func (svc *envVarsService) GetDisplayAddress() string {
	return getEnv("DISPLAY_ADDRESS", svc.Fallback.GetDisplayAddress())
}

func (svc *envVarsService) GetJournalPath() string {
	return getEnv("JOURNAL_PATH", svc.Fallback.GetJournalPath())
}

func (svc *envVarsService) GetLogFolder() string {
	return getEnv("LOG_FOLDER", svc.Fallback.GetLogFolder())
}

func (svc *envVarsService) GetSnapshotsFolder() string {
	return getEnv("SNAPSHOTS_FOLDER", svc.Fallback.GetSnapshotsFolder())
}

func (svc *envVarsService) GetPipelineParameters(name string) PipelineParameters {
	params := svc.Fallback.GetPipelineParameters(name)
	prefix := strings.ToUpper(name) + "_"

	params.ModelPath = getEnv(prefix+"MODEL_PATH", params.ModelPath)
	params.RecognizerPath = getEnv(prefix+"RECOGNIZER_PATH", params.RecognizerPath)
	params.LabelsPath = getEnv(prefix+"LABELS_PATH", params.LabelsPath)
	params.ConfidenceThreshold = float32(getEnvAsFloat(prefix+"CONFIDENCE_THRESHOLD", float64(params.ConfidenceThreshold)))
	params.MinInterval = getEnvAsInt(prefix+"MIN_INTERVAL", params.MinInterval)
	params.Novelty = getEnvAsBool(prefix+"NOVELTY", params.Novelty)
	params.AsyncSpeech = getEnvAsBool(prefix+"ASYNC_SPEECH", params.AsyncSpeech)
	params.Rotation = getEnv(prefix+"ROTATION", params.Rotation)
	params.MessageFormat = getEnv(prefix+"MESSAGE_FORMAT", params.MessageFormat)
	params.WindowTitle = getEnv(prefix+"WINDOW_TITLE", params.WindowTitle)
	if v := os.Getenv(prefix + "IGNORED_LABELS"); v != "" {
		params.IgnoredLabels = splitList(v)
	}

	return params
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
