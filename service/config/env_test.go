package config

import (
	"reflect"
	"testing"
)

func TestEnvVarsFallsBackToHardCoded(t *testing.T) {
	svc := NewEnvVars(NewHardCoded())

	if svc.GetStreamTimeout() != 10 {
		t.Errorf("GetStreamTimeout() = %d, want 10", svc.GetStreamTimeout())
	}
	if svc.GetStreamChunkSize() != 1024 {
		t.Errorf("GetStreamChunkSize() = %d, want 1024", svc.GetStreamChunkSize())
	}
	if svc.GetSpeechRate() != 150 {
		t.Errorf("GetSpeechRate() = %d, want 150", svc.GetSpeechRate())
	}

	cash := svc.GetPipelineParameters(CashPipelineName)
	if cash.MinInterval != 10 || cash.Novelty || cash.ConfidenceThreshold != 0.7 {
		t.Errorf("unexpected cash parameters: %+v", cash)
	}
	if !reflect.DeepEqual(cash.IgnoredLabels, []string{"fake"}) {
		t.Errorf("IgnoredLabels = %v, want [fake]", cash.IgnoredLabels)
	}

	objects := svc.GetPipelineParameters(ObjectsPipelineName)
	if objects.MinInterval != 5 || !objects.Novelty || !objects.FirstOnly || objects.AsyncSpeech {
		t.Errorf("unexpected objects parameters: %+v", objects)
	}

	reader := svc.GetPipelineParameters(ReaderPipelineName)
	if !reader.GatePerception || !reader.AsyncSpeech || reader.MinInterval != 5 {
		t.Errorf("unexpected reader parameters: %+v", reader)
	}
}

func TestEnvVarsOverrides(t *testing.T) {
	t.Setenv("STREAM_URL", "http://10.0.0.5/stream")
	t.Setenv("STREAM_TIMEOUT", "3")
	t.Setenv("SPEECH_VOLUME", "0.5")
	t.Setenv("OBJECTS_CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("OBJECTS_NOVELTY", "false")
	t.Setenv("OBJECTS_IGNORED_LABELS", "person, ,chair")
	t.Setenv("CASH_MIN_INTERVAL", "not-a-number")

	svc := NewEnvVars(NewHardCoded())

	if svc.GetStreamURL() != "http://10.0.0.5/stream" {
		t.Errorf("GetStreamURL() = %q", svc.GetStreamURL())
	}
	if svc.GetStreamTimeout() != 3 {
		t.Errorf("GetStreamTimeout() = %d, want 3", svc.GetStreamTimeout())
	}
	if svc.GetSpeechVolume() != 0.5 {
		t.Errorf("GetSpeechVolume() = %v, want 0.5", svc.GetSpeechVolume())
	}

	objects := svc.GetPipelineParameters(ObjectsPipelineName)
	if objects.ConfidenceThreshold != 0.8 {
		t.Errorf("ConfidenceThreshold = %v, want 0.8", objects.ConfidenceThreshold)
	}
	if objects.Novelty {
		t.Error("Novelty should be overridden to false")
	}
	if !reflect.DeepEqual(objects.IgnoredLabels, []string{"person", "chair"}) {
		t.Errorf("IgnoredLabels = %v", objects.IgnoredLabels)
	}

	if got := svc.GetPipelineParameters(CashPipelineName).MinInterval; got != 10 {
		t.Errorf("unparsable override should fall back, got %d", got)
	}
}

func TestUnknownPipeline(t *testing.T) {
	params := NewHardCoded().GetPipelineParameters("nope")
	if params.ModelPath != "" || params.MinInterval != 0 {
		t.Errorf("expected zero parameters, got %+v", params)
	}
}
