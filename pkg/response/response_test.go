package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
)

func TestJSONWrapsDataAndMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, []int{1, 2}, map[string]interface{}{"count": 2})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":[1,2],"meta":{"count":2}}`, w.Body.String())
}

func TestErrorUsesTypedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.NewUpstreamError(http.StatusUnauthorized, "", "nope"))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, appErrors.CodeUpstream, env.Error.Code)
	assert.Equal(t, "Canvas API Error: 401 Unauthorized", env.Error.Message)
	assert.Len(t, c.Errors, 1)
}
