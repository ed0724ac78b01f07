package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	t.Run("Should classify wrapped errors by kind", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := fmt.Errorf("query index: %w", NewUnavailableError("vector index unreachable", cause))
		assert.Equal(t, KindUnavailable, KindOf(err))
		assert.True(t, IsKind(err, KindUnavailable))
		assert.False(t, IsKind(err, KindInvalidInput))
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("Should default to internal for plain errors", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	})

	t.Run("Should render message with and without cause", func(t *testing.T) {
		withCause := NewInputError("decode image", errors.New("bad header"))
		assert.Equal(t, "decode image: bad header", withCause.Error())
		withoutCause := NewInputError("top_k out of range", nil)
		assert.Equal(t, "top_k out of range", withoutCause.Error())
	})
}

func TestProblemFromError(t *testing.T) {
	t.Run("Should map input errors to 400", func(t *testing.T) {
		problem := ProblemFromError(NewInputError("empty image", nil), "/api/v0/search")
		require.Equal(t, http.StatusBadRequest, problem.Status)
		assert.Equal(t, "Bad Request", problem.Title)
		assert.Equal(t, "/api/v0/search", problem.Instance)
	})

	t.Run("Should map unavailable errors to 503", func(t *testing.T) {
		problem := ProblemFromError(NewUnavailableError("model not loaded", nil), "")
		assert.Equal(t, http.StatusServiceUnavailable, problem.Status)
	})

	t.Run("Should map unknown errors to 500", func(t *testing.T) {
		problem := ProblemFromError(errors.New("boom"), "")
		assert.Equal(t, http.StatusInternalServerError, problem.Status)
	})

	t.Run("Should build body with extras", func(t *testing.T) {
		problem := NormalizeProblem(&Problem{Status: 400, Detail: "bad", Extras: map[string]any{"code": "bad_image"}})
		body := BuildProblemBody(problem)
		assert.Equal(t, 400, body["status"])
		assert.Equal(t, "bad", body["details"])
		assert.Equal(t, "bad_image", body["code"])
	})
}
