package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/generative"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const (
	historyTurns      = 5
	maxQuestionLength = 4000
	resourceCount     = 3
	defaultTimeout    = 30 * time.Second
)

type Turn struct {
	Text   string `json:"text"`
	IsUser bool   `json:"isUser"`
}

type AskInput struct {
	Message string
	History []Turn
	// MentorType selects specialised fallback answers, e.g. "software-dev".
	MentorType string
	// SystemPrompt replaces the role-aware default when set.
	SystemPrompt string
}

type Answer struct {
	Response string `json:"response"`
	IsAI     bool   `json:"isAI"`
}

type SessionSummary struct {
	Summary   string   `json:"summary"`
	Resources []string `json:"resources"`
	IsAI      bool     `json:"isAI"`
}

type Welcome struct {
	Welcome            string   `json:"welcome"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
}

type Service struct {
	generator generative.Generator
	timeout   time.Duration
	pick      func(n int) int
}

func NewService(generator generative.Generator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{generator: generator, timeout: timeout, pick: rand.IntN}
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.generator.Generate(gctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty generator reply")
	}
	return text, nil
}

func logGenerateError(op string, err error) {
	if errors.Is(err, generative.ErrDisabled) {
		slog.Debug("generator disabled, using fallback", "op", op)
		return
	}
	slog.Warn("generator failed, using fallback", "op", op, "error", err)
}

func (s *Service) Ask(ctx context.Context, caller identity.Caller, input AskInput) (Answer, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return Answer{}, apperr.Validation("Question is required")
	}
	if len([]rune(message)) > maxQuestionLength {
		return Answer{}, apperr.Validation("Question must be 4000 characters or fewer")
	}

	text, err := s.generate(ctx, buildAskPrompt(caller, input.SystemPrompt, input.History, message))
	if err != nil {
		logGenerateError("ask", err)
		return Answer{Response: s.fallback(input.MentorType), IsAI: false}, nil
	}
	return Answer{Response: text, IsAI: true}, nil
}

func buildAskPrompt(caller identity.Caller, systemPrompt string, history []Turn, message string) string {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt(caller)
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nConversation History:\n")
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, turn := range history {
		speaker := "Assistant"
		if turn.IsUser {
			speaker = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, turn.Text)
	}
	fmt.Fprintf(&b, "\nUser: %s\nAssistant:", message)
	return b.String()
}

func defaultSystemPrompt(caller identity.Caller) string {
	role := "Learner"
	focus := "focus on clear explanations and step-by-step guidance"
	if caller.HasRole(repository.RoleMentor) {
		role = "Mentor"
		focus = "focus on teaching strategies and advanced concepts"
	}
	return fmt.Sprintf(`You are a helpful and friendly mentoring assistant for SkillSphere, a platform connecting learners with mentors.

User Profile:
- Role: %s

Instructions:
- Answer questions simply but accurately
- Provide practical, actionable advice
- Suggest specific resources when helpful
- Be encouraging and supportive
- Keep responses concise but informative
- For this user, %s`, role, focus)
}

func (s *Service) fallback(mentorType string) string {
	responses, ok := specializedFallbacks[strings.ToLower(strings.TrimSpace(mentorType))]
	if !ok {
		responses = genericFallbacks
	}
	return responses[s.pick(len(responses))]
}

var resourceIndex = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

func (s *Service) SummarizeSession(ctx context.Context, transcript string) (SessionSummary, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return SessionSummary{}, apperr.Validation("Transcript is required")
	}
	text, err := s.generate(ctx, buildSummaryPrompt(transcript))
	if err != nil {
		logGenerateError("summarize", err)
		return SessionSummary{Summary: fallbackSummary, Resources: slices.Clone(staticResources[:resourceCount]), IsAI: false}, nil
	}
	summary, resources := parseSummaryReply(text)
	return SessionSummary{Summary: summary, Resources: resources, IsAI: true}, nil
}

func buildSummaryPrompt(transcript string) string {
	return `Summarize this mentoring session transcript in bullet points. Then provide 3 recommended learning resources with brief descriptions.

Transcript:
` + transcript + `

Please format your response as:
SUMMARY:
• [bullet point 1]
• [bullet point 2]
• [bullet point 3]

RECOMMENDED RESOURCES:
1. [Resource name] - [brief description]
2. [Resource name] - [brief description]
3. [Resource name] - [brief description]`
}

// parseSummaryReply splits a reply into its summary section and up to three
// resources; missing resources fall back to the static list.
func parseSummaryReply(text string) (string, []string) {
	summaryPart, resourcePart, found := strings.Cut(text, "RECOMMENDED RESOURCES:")
	summary := strings.TrimSpace(strings.Replace(summaryPart, "SUMMARY:", "", 1))

	resources := make([]string, 0, resourceCount)
	if found {
		for _, line := range strings.Split(resourcePart, "\n") {
			line = strings.TrimSpace(resourceIndex.ReplaceAllString(line, ""))
			if line == "" {
				continue
			}
			resources = append(resources, line)
			if len(resources) == resourceCount {
				break
			}
		}
	}
	if len(resources) == 0 {
		resources = append(resources, staticResources[:resourceCount]...)
	}
	return summary, resources
}

func (s *Service) Welcome(caller identity.Caller) Welcome {
	name := strings.TrimSpace(caller.Name)
	if name == "" {
		name = "there"
	}
	intro := "I'm here to help you learn."
	if caller.HasRole(repository.RoleMentor) {
		intro = "I can help you prepare and run your mentoring sessions."
	}
	return Welcome{
		Welcome:            fmt.Sprintf("Hi %s! I'm your AI Learning Assistant. %s What can I help you with today?", name, intro),
		SuggestedQuestions: slices.Clone(suggestedQuestions),
	}
}
