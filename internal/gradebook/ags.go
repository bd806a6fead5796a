package gradebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const scoreScope = "https://purl.imsglobal.org/spec/lti-ags/scope/score"

type AGSConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// AGSMirror posts scores to an LTI Assignment and Grade Services line item.
type AGSMirror struct {
	http *http.Client
	now  func() time.Time
}

func NewAGSMirror(cfg AGSConfig) (*AGSMirror, error) {
	if cfg.TokenURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("gradebook: missing token url or client credentials")
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{scoreScope},
	}
	h := cc.Client(context.Background())
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &AGSMirror{http: h, now: time.Now}, nil
}

type agsScore struct {
	UserID           string   `json:"userId"`
	Timestamp        string   `json:"timestamp"`
	ScoreGiven       *float64 `json:"scoreGiven,omitempty"`
	ScoreMaximum     *float64 `json:"scoreMaximum,omitempty"`
	ActivityProgress string   `json:"activityProgress"`
	GradingProgress  string   `json:"gradingProgress"`
	Comment          string   `json:"comment,omitempty"`
}

func (m *AGSMirror) PushGrade(ctx context.Context, update GradeUpdate) error {
	if strings.TrimSpace(update.LineItemURL) == "" {
		return ErrNoLineItem
	}

	score := agsScore{
		UserID:           update.UserID,
		Timestamp:        m.now().UTC().Format(time.RFC3339Nano),
		ActivityProgress: "Completed",
		GradingProgress:  "FullyGraded",
		Comment:          update.Comment,
	}
	if update.Grade != nil {
		maxGrade := update.MaxGrade
		score.ScoreGiven = update.Grade
		score.ScoreMaximum = &maxGrade
	} else {
		score.GradingProgress = "NotReady"
	}

	body, err := json.Marshal(score)
	if err != nil {
		return err
	}

	// POST {lineItemURL}/scores
	u := strings.TrimRight(update.LineItemURL, "/") + "/scores"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/vnd.ims.lis.v1.score+json")

	res, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("post score: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("post score: %s: %s", res.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
