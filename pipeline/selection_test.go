package pipeline

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/config"
)

func det(label string, confidence float32) model.Detection {
	return model.NewBoxDetection(image.Rect(0, 0, 10, 10), label, confidence)
}

func labelsOf(detections []model.Detection) []string {
	var labels []string
	for _, d := range detections {
		labels = append(labels, d.Label)
	}
	return labels
}

func TestSelectDetections(t *testing.T) {
	objects := config.NewHardCoded().GetPipelineParameters(config.ObjectsPipelineName)
	cash := config.NewHardCoded().GetPipelineParameters(config.CashPipelineName)

	tests := []struct {
		name           string
		params         config.PipelineParameters
		detections     []model.Detection
		wantDraw       []string
		wantCandidates []string
	}{
		{
			name:           "objects takes the first detection over threshold",
			params:         objects,
			detections:     []model.Detection{det("person", 0.9), det("chair", 0.8)},
			wantDraw:       []string{"person"},
			wantCandidates: []string{"person"},
		},
		{
			name:           "objects skips detections under threshold",
			params:         objects,
			detections:     []model.Detection{det("cup", 0.3), det("chair", 0.6)},
			wantDraw:       []string{"chair"},
			wantCandidates: []string{"chair"},
		},
		{
			name:       "objects with nothing over threshold",
			params:     objects,
			detections: []model.Detection{det("cup", 0.3)},
		},
		{
			name:           "cash drops fake labels whatever their case",
			params:         cash,
			detections:     []model.Detection{det(" Fake ", 0.99), det("100", 0.9), det("500", 0.75)},
			wantDraw:       []string{"100", "500"},
			wantCandidates: []string{"100", "500"},
		},
		{
			name:       "cash neither draws nor offers detections under threshold",
			params:     cash,
			detections: []model.Detection{det("100", 0.69), det("500", 0.3)},
		},
		{
			name:   "no detections",
			params: cash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := selectDetections(tt.params, tt.detections)
			if diff := cmp.Diff(tt.wantDraw, labelsOf(v.Draw)); diff != "" {
				t.Errorf("draw mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCandidates, labelsOf(v.Candidates)); diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSentence(t *testing.T) {
	spans := []model.Detection{det("hello", 0.9), det(" ", 0.5), det("world", 0.7)}
	if got := sentence(spans); got != "hello world" {
		t.Errorf("sentence() = %q, want %q", got, "hello world")
	}
	if got := sentence(nil); got != "" {
		t.Errorf("sentence(nil) = %q, want empty", got)
	}
	if got := meanConfidence(spans); got < 0.69 || got > 0.71 {
		t.Errorf("meanConfidence() = %v, want 0.7", got)
	}
}

func TestMessageAndCaption(t *testing.T) {
	if got := message("%s rupees is detected", "100"); got != "100 rupees is detected" {
		t.Errorf("message() = %q", got)
	}
	if got := message("", "hello"); got != "hello" {
		t.Errorf("message() without format = %q", got)
	}
	if got := caption(det("person", 0.876)); got != "person (87%)" {
		t.Errorf("caption() = %q", got)
	}
}

func TestRotateFlag(t *testing.T) {
	for _, rotation := range []string{config.RotateClockwise, config.RotateCounterClockwise, config.Rotate180} {
		if _, ok := rotateFlag(rotation); !ok {
			t.Errorf("rotateFlag(%q) not recognized", rotation)
		}
	}
	if _, ok := rotateFlag(config.RotateNone); ok {
		t.Error("rotateFlag(none) should not rotate")
	}
}
