package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/transcriber"
	"github.com/shafin2/skillsphere-backend/internal/transcript"
)

type startTranscriptRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

type appendEntryRequest struct {
	SpeakerName string     `json:"speakerName" validate:"required"`
	Text        string     `json:"text" validate:"required"`
	Timestamp   *time.Time `json:"timestamp"`
}

type speakerMappingRequest struct {
	Mapping map[string]string `json:"mapping" validate:"required,min=1"`
}

func (s *Server) startTranscript(c *fiber.Ctx) error {
	var req startTranscriptRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	t, err := s.svc.Transcripts.Start(c.UserContext(), req.BookingID, callerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"message":    "Transcription started",
		"transcript": presentTranscript(t),
	})
}

func (s *Server) uploadAudio(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return apperr.Validation("audio file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Validation("audio file could not be read")
	}
	defer func() {
		_ = f.Close()
	}()
	audio, err := io.ReadAll(f)
	if err != nil {
		return apperr.Validation("audio file could not be read")
	}

	t, err := s.svc.Transcripts.AttachAudio(c.UserContext(), c.Params("sessionId"), callerFrom(c), audio, fh.Filename)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":    true,
		"message":    "Audio uploaded, transcription in progress",
		"transcript": presentTranscript(t),
	})
}

func (s *Server) appendEntry(c *fiber.Ctx) error {
	var req appendEntryRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	t, err := s.svc.Transcripts.AppendEntry(c.UserContext(), c.Params("sessionId"), callerFrom(c), transcript.AppendInput{
		SpeakerName: req.SpeakerName,
		Text:        req.Text,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "transcript": presentTranscript(t)})
}

func (s *Server) stopTranscript(c *fiber.Ctx) error {
	t, err := s.svc.Transcripts.Stop(c.UserContext(), c.Params("sessionId"), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Transcription stopped", "transcript": presentTranscript(t)})
}

func (s *Server) setSpeakers(c *fiber.Ctx) error {
	var req speakerMappingRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	t, err := s.svc.Transcripts.SetSpeakerMapping(c.UserContext(), c.Params("sessionId"), callerFrom(c), req.Mapping)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Speaker mapping updated", "transcript": presentTranscript(t)})
}

func (s *Server) listTranscripts(c *fiber.Ctx) error {
	list, err := s.svc.Transcripts.ListMine(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	out := make([]*transcriptResponse, 0, len(list))
	for i := range list {
		out = append(out, presentTranscript(&list[i]))
	}
	return c.JSON(fiber.Map{"success": true, "transcripts": out})
}

func (s *Server) getTranscript(c *fiber.Ctx) error {
	t, err := s.svc.Transcripts.Get(c.UserContext(), c.Params("sessionId"), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "transcript": presentTranscript(t)})
}

func (s *Server) transcriptByBooking(c *fiber.Ctx) error {
	t, err := s.svc.Transcripts.GetByBooking(c.UserContext(), c.Params("bookingId"), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "transcript": presentTranscript(t)})
}

func (s *Server) deleteTranscript(c *fiber.Ctx) error {
	if err := s.svc.Transcripts.Delete(c.UserContext(), c.Params("sessionId"), callerFrom(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Transcript deleted"})
}

// speechWebhook receives completion notices from the speech provider.
func (s *Server) speechWebhook(c *fiber.Ctx) error {
	if secret := s.opts.SpeechWebhookSecret; secret != "" {
		got := c.Get(transcriber.WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return apperr.Auth("Invalid webhook secret")
		}
	}
	var notice transcriber.CompletionNotice
	if err := json.Unmarshal(c.Body(), &notice); err != nil || notice.JobID == "" {
		return apperr.Validation("job_id is required")
	}
	t, err := s.svc.Transcripts.OnProviderCompletion(c.UserContext(), notice.JobID, notice.Status)
	if err != nil {
		return err
	}
	body := fiber.Map{"success": true}
	if t != nil {
		body["state"] = t.ExternalJobState
		body["completed"] = t.ExternalJobState == repository.TranscriptJobCompleted
	}
	return c.JSON(body)
}
