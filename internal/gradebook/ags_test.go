package gradebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAGSMirror_PushGrade(t *testing.T) {
	var posted agsScore
	var auth string

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/lineitems/1/scores", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/vnd.ims.lis.v1.score+json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mirror, err := NewAGSMirror(AGSConfig{TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	grade := 75.0
	err = mirror.PushGrade(context.Background(), GradeUpdate{
		LineItemURL: srv.URL + "/lineitems/1",
		UserID:      "student-1",
		Grade:       &grade,
		MaxGrade:    100,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", auth)
	assert.Equal(t, "student-1", posted.UserID)
	require.NotNil(t, posted.ScoreGiven)
	assert.Equal(t, 75.0, *posted.ScoreGiven)
	require.NotNil(t, posted.ScoreMaximum)
	assert.Equal(t, 100.0, *posted.ScoreMaximum)
	assert.Equal(t, "FullyGraded", posted.GradingProgress)
}

func TestAGSMirror_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"t","token_type":"Bearer"}`))
			return
		}
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	mirror, err := NewAGSMirror(AGSConfig{TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	err = mirror.PushGrade(context.Background(), GradeUpdate{UserID: "u"})
	assert.ErrorIs(t, err, ErrNoLineItem)

	err = mirror.PushGrade(context.Background(), GradeUpdate{LineItemURL: srv.URL + "/li", UserID: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = NewAGSMirror(AGSConfig{})
	assert.Error(t, err)
}
