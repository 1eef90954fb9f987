package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/generative"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

type mockGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func newService(gen *mockGenerator) *Service {
	s := NewService(gen, 0)
	s.pick = func(int) int { return 0 }
	return s
}

var mentorCaller = identity.Caller{ID: "m1", Name: "Mina", Roles: []repository.Role{repository.RoleMentor}}

func TestAsk_UsesGenerator(t *testing.T) {
	gen := &mockGenerator{reply: "  Use table-driven tests.  "}
	s := newService(gen)
	history := []Turn{
		{Text: "turn-1", IsUser: true}, {Text: "turn-2"}, {Text: "turn-3", IsUser: true},
		{Text: "turn-4"}, {Text: "turn-5", IsUser: true}, {Text: "turn-6"},
	}

	answer, err := s.Ask(context.Background(), mentorCaller, AskInput{Message: "How do I test?", History: history})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if !answer.IsAI || answer.Response != "Use table-driven tests." {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	prompt := gen.prompts[0]
	if strings.Contains(prompt, "turn-1") || !strings.Contains(prompt, "Assistant: turn-2") || !strings.Contains(prompt, "Assistant: turn-6") {
		t.Fatalf("expected only the last 5 turns in prompt: %s", prompt)
	}
	if !strings.Contains(prompt, "Role: Mentor") || !strings.HasSuffix(prompt, "User: How do I test?\nAssistant:") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
}

func TestAsk_CustomSystemPrompt(t *testing.T) {
	gen := &mockGenerator{reply: "ok"}
	s := newService(gen)
	if _, err := s.Ask(context.Background(), mentorCaller, AskInput{Message: "hi", SystemPrompt: "You are terse."}); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if !strings.HasPrefix(gen.prompts[0], "You are terse.") || strings.Contains(gen.prompts[0], "Role: Mentor") {
		t.Fatalf("expected custom system prompt: %s", gen.prompts[0])
	}
}

func TestAsk_Fallbacks(t *testing.T) {
	s := newService(&mockGenerator{err: generative.ErrDisabled})

	answer, err := s.Ask(context.Background(), mentorCaller, AskInput{Message: "hi", MentorType: "Marketing"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.IsAI || answer.Response != specializedFallbacks["marketing"][0] {
		t.Fatalf("expected marketing fallback, got %+v", answer)
	}

	s = newService(&mockGenerator{err: errors.New("quota exceeded")})
	answer, err = s.Ask(context.Background(), mentorCaller, AskInput{Message: "hi", MentorType: "astrology"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.IsAI || answer.Response != genericFallbacks[0] {
		t.Fatalf("expected generic fallback, got %+v", answer)
	}

	s = newService(&mockGenerator{reply: "   "})
	answer, _ = s.Ask(context.Background(), mentorCaller, AskInput{Message: "hi"})
	if answer.IsAI {
		t.Fatal("expected blank reply to fall back")
	}
}

func TestAsk_RequiresMessage(t *testing.T) {
	gen := &mockGenerator{reply: "x"}
	_, err := newService(gen).Ask(context.Background(), mentorCaller, AskInput{Message: "  "})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("expected no generator call")
	}
}

func TestSummarizeSession_ParsesReply(t *testing.T) {
	reply := "SUMMARY:\n• Covered goroutines\n• Discussed channels\n\nRECOMMENDED RESOURCES:\n1. Go Tour - basics\n2. Effective Go - idioms\n\n3. Go by Example - snippets\n4. Extra - ignored"
	s := newService(&mockGenerator{reply: reply})

	got, err := s.SummarizeSession(context.Background(), "[mentor]: hello")
	if err != nil {
		t.Fatalf("SummarizeSession failed: %v", err)
	}
	if !got.IsAI || got.Summary != "• Covered goroutines\n• Discussed channels" {
		t.Fatalf("unexpected summary: %q", got.Summary)
	}
	want := []string{"Go Tour - basics", "Effective Go - idioms", "Go by Example - snippets"}
	if len(got.Resources) != len(want) {
		t.Fatalf("unexpected resources: %v", got.Resources)
	}
	for i := range want {
		if got.Resources[i] != want[i] {
			t.Fatalf("resource %d = %q, want %q", i, got.Resources[i], want[i])
		}
	}
}

func TestSummarizeSession_MissingResources(t *testing.T) {
	s := newService(&mockGenerator{reply: "• Only bullets"})
	got, err := s.SummarizeSession(context.Background(), "text")
	if err != nil {
		t.Fatalf("SummarizeSession failed: %v", err)
	}
	if got.Summary != "• Only bullets" || len(got.Resources) != 3 || got.Resources[0] != staticResources[0] {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSummarizeSession_Fallback(t *testing.T) {
	s := newService(&mockGenerator{err: errors.New("boom")})
	got, err := s.SummarizeSession(context.Background(), "text")
	if err != nil {
		t.Fatalf("SummarizeSession failed: %v", err)
	}
	if got.IsAI || got.Summary != fallbackSummary || len(got.Resources) != 3 {
		t.Fatalf("unexpected fallback: %+v", got)
	}

	_, err = s.SummarizeSession(context.Background(), " ")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWelcome(t *testing.T) {
	s := newService(&mockGenerator{})
	w := s.Welcome(identity.Caller{ID: "l1"})
	if !strings.HasPrefix(w.Welcome, "Hi there!") || len(w.SuggestedQuestions) != len(suggestedQuestions) {
		t.Fatalf("unexpected welcome: %+v", w)
	}
	w.SuggestedQuestions[0] = "changed"
	if suggestedQuestions[0] == "changed" {
		t.Fatal("expected suggested questions to be copied")
	}
	if m := s.Welcome(mentorCaller); !strings.Contains(m.Welcome, "Hi Mina!") || !strings.Contains(m.Welcome, "mentoring sessions") {
		t.Fatalf("unexpected mentor welcome: %s", m.Welcome)
	}
}
