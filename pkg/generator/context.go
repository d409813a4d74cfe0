package generator

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"redditbots/pkg/config"
	"redditbots/pkg/platform"
)

const segmentSeparator = "\n\n"

// CollectThreadContext walks from target up to the root post and returns the
// thread root first, target last, segments separated by a blank line.
//
// A parent that fails to resolve ends the walk; whatever was gathered so far
// is still returned. maxDepth bounds the number of parent lookups.
func CollectThreadContext(ctx context.Context, target platform.Node, maxDepth int, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDepth <= 0 {
		maxDepth = config.DefaultMaxContextDepth
	}

	switch n := target.(type) {
	case platform.Post:
		return postContext(n)
	case platform.Comment:
		return commentContext(ctx, n, maxDepth, logger)
	default:
		return NoContextMessage
	}
}

func postContext(p platform.Post) string {
	switch {
	case p.Title != "":
		return FormatPost(p)
	case strings.TrimSpace(p.Body) != "":
		return p.Body
	default:
		return NoContextMessage
	}
}

func commentContext(ctx context.Context, leaf platform.Comment, maxDepth int, logger *zap.Logger) string {
	// Collected leaf first, reversed at the end.
	var segments []string
	var root *platform.Post

	current := leaf
	for hops := 0; ; hops++ {
		if current.Body != "" {
			segments = append(segments, current.Body)
		}
		if !current.HasParent() {
			break
		}
		if hops >= maxDepth {
			logger.Debug("thread walk hit depth limit",
				zap.String("comment", current.FullName()),
				zap.Int("max_depth", maxDepth))
			break
		}

		parent, err := current.Parent(ctx)
		if err != nil {
			logger.Debug("stopping thread walk, parent did not resolve",
				zap.String("comment", current.FullName()),
				zap.String("parent", current.ParentID),
				zap.Error(err))
			break
		}

		next, ok := parent.(platform.Comment)
		if !ok {
			if p, isPost := parent.(platform.Post); isPost {
				root = &p
			}
			break
		}
		current = next
	}

	if root != nil {
		segments = append(segments, FormatPost(*root))
	}
	if len(segments) == 0 {
		return NoContextMessage
	}
	slices.Reverse(segments)
	return strings.Join(segments, segmentSeparator)
}
