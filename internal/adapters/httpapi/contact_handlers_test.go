package httpapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContact_SubmitAndConfirmationWindow(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/contact", "sub-1", map[string]any{
		"name":    "Asha",
		"email":   "asha@example.com",
		"message": "Need a quote for a trip.",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	resp := decode[ContactSubmitResponse](t, rec)
	require.True(t, resp.Accepted)
	require.Equal(t, "banner", resp.Notification.Kind)
	require.NotNil(t, resp.Message)

	rec = api.do(t, http.MethodGet, "/contact/confirmation", "sub-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[ContactConfirmation](t, rec).Visible)

	api.clk.Advance(3 * time.Second)
	rec = api.do(t, http.MethodGet, "/contact/confirmation", "sub-1", nil, nil)
	require.False(t, decode[ContactConfirmation](t, rec).Visible)

	rec = api.do(t, http.MethodGet, "/contact/messages/"+resp.Message.MessageId.String(), "sub-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Need a quote for a trip.", decode[ContactMessage](t, rec).Message)

	rec = api.do(t, http.MethodGet, "/contact/messages/"+resp.Message.MessageId.String(), "sub-2", nil, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")
}

func TestContact_Rejections(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/contact", "sub-1", map[string]any{
		"name": "Asha", "email": "", "message": "Need a quote for a trip.",
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ContactSubmitResponse](t, rec)
	require.False(t, resp.Accepted)
	require.Equal(t, "alert", resp.Notification.Kind)
	require.Equal(t, "Please fill in all fields", resp.Notification.Detail)

	rec = api.do(t, http.MethodPost, "/contact", "sub-1", map[string]any{
		"name": "Asha", "email": "asha@example.com", "message": "too short",
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Message should be at least 10 characters long", decode[ContactSubmitResponse](t, rec).Notification.Detail)

	rec = api.do(t, http.MethodGet, "/contact/confirmation", "sub-1", nil, nil)
	require.False(t, decode[ContactConfirmation](t, rec).Visible)
}

func TestContact_ListAndParams(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	for i := 0; i < 3; i++ {
		rec := api.do(t, http.MethodPost, "/contact", "sub-1", map[string]any{
			"name": "Asha", "email": "asha@example.com", "message": "Need a quote for a trip.",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		api.clk.Advance(time.Second)
	}

	rec := api.do(t, http.MethodGet, "/contact/messages?limit=2", "sub-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	list := decode[ContactMessageList](t, rec)
	require.Len(t, list.Messages, 2)
	require.True(t, list.Messages[0].CreatedAt.After(list.Messages[1].CreatedAt))

	rec = api.do(t, http.MethodGet, "/contact/messages", "sub-1", nil, nil)
	require.Len(t, decode[ContactMessageList](t, rec).Messages, 3)

	rec = api.do(t, http.MethodGet, "/contact/messages?limit=abc", "sub-1", nil, nil)
	requireErrorCode(t, rec, http.StatusBadRequest, "BAD_REQUEST")

	rec = api.do(t, http.MethodGet, "/contact/messages?limit=0", "sub-1", nil, nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodGet, "/contact/messages/not-a-uuid", "sub-1", nil, nil)
	requireErrorCode(t, rec, http.StatusBadRequest, "BAD_REQUEST")
}
