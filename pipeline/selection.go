package pipeline

import (
	"fmt"
	"strings"

	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/config"
)

// verdict is what one frame's detections yield: boxes to draw and, in
// order, the candidates offered to the announcement gate.
type verdict struct {
	Draw       []model.Detection
	Candidates []model.Detection
}

// selectDetections applies the pipeline's threshold and label filters.
// With FirstOnly only the first detection clearing the threshold counts,
// otherwise every non-ignored detection clearing it is drawn and offered.
func selectDetections(params config.PipelineParameters, detections []model.Detection) verdict {
	var v verdict

	if params.FirstOnly {
		for _, d := range detections {
			if ignored(params.IgnoredLabels, d.Label) || d.Confidence < params.ConfidenceThreshold {
				continue
			}
			v.Draw = append(v.Draw, d)
			v.Candidates = append(v.Candidates, d)
			break
		}
		return v
	}

	for _, d := range detections {
		if ignored(params.IgnoredLabels, d.Label) || d.Confidence < params.ConfidenceThreshold {
			continue
		}
		v.Draw = append(v.Draw, d)
		v.Candidates = append(v.Candidates, d)
	}
	return v
}

func ignored(labels []string, label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, l := range labels {
		if strings.ToLower(strings.TrimSpace(l)) == label {
			return true
		}
	}
	return false
}

// sentence joins recognized text spans in reading order.
func sentence(detections []model.Detection) string {
	parts := make([]string, 0, len(detections))
	for _, d := range detections {
		if text := strings.TrimSpace(d.Label); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func meanConfidence(detections []model.Detection) float32 {
	if len(detections) == 0 {
		return 0
	}
	var sum float32
	for _, d := range detections {
		sum += d.Confidence
	}
	return sum / float32(len(detections))
}

func message(format, label string) string {
	if format == "" {
		return label
	}
	return fmt.Sprintf(format, label)
}

func caption(d model.Detection) string {
	return fmt.Sprintf("%s (%d%%)", d.Label, int(d.Confidence*100))
}
