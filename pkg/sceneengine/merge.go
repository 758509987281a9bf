package sceneengine

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/prompthub/prompthub/pkg/models"
)

var scoreCommentPattern = regexp.MustCompile(`\{\{!score=([-+]?[0-9]*\.?[0-9]+)\}\}`)

// mergeConcat joins step outputs with the scene's separator, in pipeline order.
func mergeConcat(outputs []string, separator string) string {
	return strings.Join(outputs, separator)
}

// mergeChain returns the final step's output; intermediate outputs were
// already threaded forward as each step's prior_output variable.
func mergeChain(outputs []string) string {
	if len(outputs) == 0 {
		return ""
	}
	return outputs[len(outputs)-1]
}

// mergeSelectBest picks the output carrying the highest "{{!score=N}}"
// metadata comment, stripping the comment from the winning output. If no
// step emits a score, it falls back to the last step's output and returns a
// warning alongside it, in addition to logging.
func mergeSelectBest(outputs []string) (string, string) {
	bestIdx := -1
	bestScore := 0.0

	for i, out := range outputs {
		m := scoreCommentPattern.FindStringSubmatch(out)
		if m == nil {
			continue
		}
		score, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if bestIdx == -1 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestIdx == -1 {
		const warning = "select_best: no step emitted a {{!score=...}} comment, falling back to last step"
		slog.Warn(warning)
		if len(outputs) == 0 {
			return "", warning
		}
		return stripScoreComment(outputs[len(outputs)-1]), warning
	}

	return stripScoreComment(outputs[bestIdx]), ""
}

func stripScoreComment(s string) string {
	return strings.TrimSpace(scoreCommentPattern.ReplaceAllString(s, ""))
}

// merge dispatches to the strategy a scene declares, returning the merged
// content and an optional warning surfaced on the resolve result.
func merge(strategy models.MergeStrategy, outputs []string, separator string) (string, string) {
	switch strategy {
	case models.MergeChain:
		return mergeChain(outputs), ""
	case models.MergeSelectBest:
		return mergeSelectBest(outputs)
	default:
		return mergeConcat(outputs, separator), ""
	}
}
