package panel

import "github.com/jasmine-z2a/studio/internal/model"

// DefaultTopic is the fallback topic used when nothing is selected and no
// candidate topic is available. It encodes a legacy compatibility choice,
// so deployments may override it (see the -default-topic flag).
const DefaultTopic = "/rosout"

// SelectTopic resolves the topic a panel should render.
//
// Candidates are the topics whose datatype is in the allowed set, in their
// original order. Resolution: the explicit choice wins if present, even when
// it no longer appears among the candidates (a stale selection renders as
// "no data" upstream, it is not an error here); otherwise the first
// candidate; otherwise fallback.
func SelectTopic(topics []model.TopicDescriptor, allowed map[string]struct{}, explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	for _, t := range topics {
		if _, ok := allowed[t.Datatype]; ok {
			return t.Name
		}
	}
	return fallback
}
