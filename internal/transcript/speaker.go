package transcript

import (
	"strings"

	"github.com/shafin2/skillsphere-backend/internal/repository"
)

// SpeakerPolicy assigns session roles to provider diarization labels, given
// in order of first appearance.
type SpeakerPolicy interface {
	MapSpeakers(labels []string) map[string]repository.Speaker
}

// AppearanceOrderPolicy maps the first distinct label to the learner, the
// second to the mentor and any further label to unknown.
type AppearanceOrderPolicy struct{}

func (AppearanceOrderPolicy) MapSpeakers(labels []string) map[string]repository.Speaker {
	mapping := make(map[string]repository.Speaker, len(labels))
	for _, label := range labels {
		if _, ok := mapping[label]; ok {
			continue
		}
		switch len(mapping) {
		case 0:
			mapping[label] = repository.SpeakerLearner
		case 1:
			mapping[label] = repository.SpeakerMentor
		default:
			mapping[label] = repository.SpeakerUnknown
		}
	}
	return mapping
}

// resolveSpeakers applies the policy and lets explicit per-transcript
// overrides win.
func resolveSpeakers(policy SpeakerPolicy, labels []string, override map[string]repository.Speaker) map[string]repository.Speaker {
	mapping := policy.MapSpeakers(labels)
	for label, speaker := range override {
		mapping[label] = speaker
	}
	return mapping
}

func ParseSpeaker(raw string) (repository.Speaker, bool) {
	switch repository.Speaker(strings.ToLower(strings.TrimSpace(raw))) {
	case repository.SpeakerLearner:
		return repository.SpeakerLearner, true
	case repository.SpeakerMentor:
		return repository.SpeakerMentor, true
	case repository.SpeakerUnknown:
		return repository.SpeakerUnknown, true
	}
	return "", false
}

// speakerForName matches a free-form speaker name against the participants
// of the transcript, falling back to role words.
func speakerForName(t *repository.Transcript, name string) repository.Speaker {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.SpeakerUnknown
	}
	switch {
	case t.Learner.Name != "" && strings.EqualFold(name, t.Learner.Name):
		return repository.SpeakerLearner
	case t.Mentor.Name != "" && strings.EqualFold(name, t.Mentor.Name):
		return repository.SpeakerMentor
	}
	if s, ok := ParseSpeaker(name); ok {
		return s
	}
	return repository.SpeakerUnknown
}
