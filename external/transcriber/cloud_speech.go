package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/google/uuid"
	"github.com/shafin2/skillsphere-backend/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	uploadRefPrefix       = "upload://"
	diarizationSpeakers   = 2
	recognizeTimeout      = 10 * time.Minute
	recognizeAttempts     = 2
	notifyTimeout         = 15 * time.Second
	defaultRetention      = time.Hour
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
	WebhookSecret   string
	// Retention is how long unclaimed uploads and finished jobs are kept.
	Retention time.Duration
}

type recognizeFunc func(ctx context.Context, audio []byte) (*speechpb.RecognizeResponse, error)

type upload struct {
	audio      []byte
	uploadedAt time.Time
}

type job struct {
	status     transcriber.JobStatus
	result     transcriber.Result
	finishedAt time.Time
}

// CloudSpeechProvider keeps uploaded audio in memory, runs a diarized
// Recognize call per job in the background and reports completion to the
// webhook URL given to StartJob.
type CloudSpeechProvider struct {
	projectID       string
	credentialsJSON string
	language        string
	location        string
	model           string
	webhookSecret   string
	retention       time.Duration

	recognize recognizeFunc
	client    *http.Client
	now       func() time.Time

	mu      sync.Mutex
	uploads map[string]upload
	jobs    map[string]*job
	wg      sync.WaitGroup
}

func NewCloudSpeechProvider(cfg CloudSpeechConfig) *CloudSpeechProvider {
	p := &CloudSpeechProvider{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		language:        cfg.Language,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
		webhookSecret:   cfg.WebhookSecret,
		retention:       cfg.Retention,
		client:          &http.Client{Timeout: notifyTimeout},
		now:             time.Now,
		uploads:         make(map[string]upload),
		jobs:            make(map[string]*job),
	}
	if p.location == "" {
		p.location = "global"
	}
	if p.retention <= 0 {
		p.retention = defaultRetention
	}
	p.recognize = p.recognizeWithCloudSpeech
	return p
}

func (p *CloudSpeechProvider) Upload(_ context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio is empty")
	}
	ref := uploadRefPrefix + uuid.NewString()
	p.mu.Lock()
	p.evictExpiredLocked()
	p.uploads[ref] = upload{audio: bytes.Clone(audio), uploadedAt: p.now()}
	p.mu.Unlock()
	slog.Info("audio uploaded for transcription", "ref", ref, "filename", filename, "size_bytes", len(audio))
	return ref, nil
}

func (p *CloudSpeechProvider) StartJob(_ context.Context, audioRef, webhookURL string) (string, error) {
	p.mu.Lock()
	p.evictExpiredLocked()
	up, ok := p.uploads[audioRef]
	if !ok {
		p.mu.Unlock()
		return "", fmt.Errorf("unknown audio reference %q", audioRef)
	}
	delete(p.uploads, audioRef)
	jobID := uuid.NewString()
	p.jobs[jobID] = &job{status: transcriber.JobStatusProcessing}
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(jobID, up.audio, webhookURL)
	}()
	slog.Info("transcription job queued", "job_id", jobID, "location", p.location, "model", p.model)
	return jobID, nil
}

func (p *CloudSpeechProvider) FetchResult(_ context.Context, jobID string) (transcriber.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evictExpiredLocked()
	j, ok := p.jobs[jobID]
	if !ok {
		return transcriber.Result{}, transcriber.ErrJobNotFound
	}
	if j.status == transcriber.JobStatusProcessing {
		return transcriber.Result{Status: j.status}, nil
	}
	return j.result, nil
}

// evictExpiredLocked drops uploads never claimed by StartJob and finished
// jobs once they are older than the retention window. p.mu must be held.
func (p *CloudSpeechProvider) evictExpiredLocked() {
	cutoff := p.now().Add(-p.retention)
	for ref, up := range p.uploads {
		if up.uploadedAt.Before(cutoff) {
			delete(p.uploads, ref)
		}
	}
	for id, j := range p.jobs {
		if j.status != transcriber.JobStatusProcessing && j.finishedAt.Before(cutoff) {
			delete(p.jobs, id)
		}
	}
}

// Wait blocks until all background jobs have finished.
func (p *CloudSpeechProvider) Wait() {
	p.wg.Wait()
}

func (p *CloudSpeechProvider) run(jobID string, audio []byte, webhookURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), recognizeTimeout)
	defer cancel()

	var (
		resp *speechpb.RecognizeResponse
		err  error
	)
	for attempt := 1; attempt <= recognizeAttempts; attempt++ {
		resp, err = p.recognize(ctx, audio)
		if err == nil || !isRetryableSpeechError(err) {
			break
		}
		slog.Warn("cloud speech recognize failed with retryable error", "job_id", jobID, "attempt", attempt, "error", err)
	}

	result := transcriber.Result{Status: transcriber.JobStatusCompleted}
	if err != nil {
		slog.Error("cloud speech recognize failed", "job_id", jobID, "error", err)
		result = transcriber.Result{Status: transcriber.JobStatusError, Error: describeSpeechError(err)}
	} else {
		result.Utterances = buildUtterances(resp)
		result.DurationMs = responseDurationMs(resp, result.Utterances)
	}

	p.mu.Lock()
	p.jobs[jobID] = &job{status: result.Status, result: result, finishedAt: p.now()}
	p.mu.Unlock()

	if err := p.notify(jobID, result.Status, webhookURL); err != nil {
		slog.Error("failed to deliver transcription webhook", "job_id", jobID, "error", err)
	}
}

func (p *CloudSpeechProvider) notify(jobID string, st transcriber.JobStatus, webhookURL string) error {
	if webhookURL == "" {
		slog.Warn("no transcription webhook configured", "job_id", jobID)
		return nil
	}
	body, err := json.Marshal(transcriber.CompletionNotice{JobID: jobID, Status: st})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.webhookSecret != "" {
		req.Header.Set(transcriber.WebhookSecretHeader, p.webhookSecret)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *CloudSpeechProvider) recognizeWithCloudSpeech(ctx context.Context, audio []byte) (*speechpb.RecognizeResponse, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(p.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if p.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", p.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = client.Close()
	}()

	return client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", p.projectID, p.location),
		Config: &speechpb.RecognitionConfig{
			Model:         p.model,
			LanguageCodes: []string{p.language},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableWordTimeOffsets:      true,
				EnableWordConfidence:       true,
				EnableAutomaticPunctuation: true,
				DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
					MinSpeakerCount: diarizationSpeakers,
					MaxSpeakerCount: diarizationSpeakers,
				},
			},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: audio},
	})
}

// buildUtterances groups consecutive words with the same speaker label.
func buildUtterances(resp *speechpb.RecognizeResponse) []transcriber.Utterance {
	var (
		utterances []transcriber.Utterance
		current    *transcriber.Utterance
		words      []string
		confSum    float64
	)
	flush := func() {
		if current == nil || len(words) == 0 {
			return
		}
		current.Text = strings.Join(words, " ")
		current.Confidence = confSum / float64(len(words))
		utterances = append(utterances, *current)
		current, words, confSum = nil, nil, 0
	}

	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		alt := alts[0]
		if len(alt.GetWords()) == 0 {
			// Results without word info carry no speaker labels.
			if text := strings.TrimSpace(alt.GetTranscript()); text != "" {
				flush()
				end := result.GetResultEndOffset().AsDuration().Milliseconds()
				utterances = append(utterances, transcriber.Utterance{
					Text:       text,
					StartMs:    end,
					EndMs:      end,
					Confidence: float64(alt.GetConfidence()),
				})
			}
			continue
		}
		for _, w := range alt.GetWords() {
			label := w.GetSpeakerLabel()
			if current != nil && current.Speaker != label {
				flush()
			}
			if current == nil {
				current = &transcriber.Utterance{
					Speaker: label,
					StartMs: w.GetStartOffset().AsDuration().Milliseconds(),
				}
			}
			current.EndMs = w.GetEndOffset().AsDuration().Milliseconds()
			words = append(words, w.GetWord())
			confSum += float64(w.GetConfidence())
		}
	}
	flush()
	return utterances
}

func responseDurationMs(resp *speechpb.RecognizeResponse, utterances []transcriber.Utterance) int64 {
	if d := resp.GetMetadata().GetTotalBilledDuration().AsDuration(); d > 0 {
		return d.Milliseconds()
	}
	var end int64
	for _, u := range utterances {
		end = max(end, u.EndMs)
	}
	return end
}

func isRetryableSpeechError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

func describeSpeechError(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return "audio could not be decoded: " + st.Message()
	case codes.DeadlineExceeded:
		return "transcription timed out"
	case codes.PermissionDenied, codes.Unauthenticated:
		return "speech credentials were rejected"
	}
	return st.Message()
}

// DisabledProvider rejects every call; it is used when Cloud Speech is not configured.
type DisabledProvider struct{}

func (DisabledProvider) Upload(context.Context, []byte, string) (string, error) {
	return "", transcriber.ErrDisabled
}

func (DisabledProvider) StartJob(context.Context, string, string) (string, error) {
	return "", transcriber.ErrDisabled
}

func (DisabledProvider) FetchResult(context.Context, string) (transcriber.Result, error) {
	return transcriber.Result{}, transcriber.ErrJobNotFound
}
