package quizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"pdf-quiz/internal/quiz"
)

const (
	DefaultBaseURL  = "http://localhost:8000"
	SessionHeader   = "X-Session-Id"
	streamDoneToken = "[DONE]"
)

var ErrServiceUnavailable = errors.New("quiz service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient shares httpClient's transport without its Timeout, which
	// would otherwise cut a long explanation stream short. Streams are bounded
	// by the request context instead.
	streamClient *http.Client
}

type UploadResult struct {
	QuizTitle string          `json:"quiz_title"`
	Questions []quiz.Question `json:"questions"`
}

type CheckAnswerRequest struct {
	QuestionID string          `json:"question_id"`
	UserAnswer string          `json:"user_answer"`
	Questions  []quiz.Question `json:"questions"`
}

// errorResponse covers both {"error": ...} bodies and FastAPI's {"detail": ...}.
type errorResponse struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func (e errorResponse) message() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	if len(e.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(e.Detail, &detail); err == nil {
		return strings.TrimSpace(detail)
	}
	return strings.TrimSpace(string(e.Detail))
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	streamClient := *httpClient
	streamClient.Timeout = 0

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		streamClient: &streamClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadPDF sends the document to the generator and returns the new quiz.
func (c *Client) UploadPDF(ctx context.Context, sessionID, filename string, file io.Reader) (UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, err
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quiz/upload-pdf", &body)
	if err != nil {
		return UploadResult{}, err
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	setSession(request, sessionID)

	var payload UploadResult
	if err := c.do(request, &payload); err != nil {
		return UploadResult{}, err
	}
	if payload.Questions == nil {
		payload.Questions = []quiz.Question{}
	}
	return payload, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, sessionID string, question quiz.Question) (quiz.Question, error) {
	if strings.TrimSpace(question.ID) == "" {
		return quiz.Question{}, errors.New("question id is required")
	}

	var updated quiz.Question
	path := "/quiz/questions/" + url.PathEscape(question.ID)
	if err := c.doJSON(ctx, http.MethodPut, path, sessionID, question, &updated); err != nil {
		return quiz.Question{}, err
	}
	return updated, nil
}

func (c *Client) CheckAnswer(ctx context.Context, sessionID string, request CheckAnswerRequest) (quiz.GradingResult, error) {
	var result quiz.GradingResult
	if err := c.doJSON(ctx, http.MethodPost, "/quiz/check-answer", sessionID, request, &result); err != nil {
		return quiz.GradingResult{}, err
	}
	return result, nil
}

// StreamFeedback opens the explanation stream for a wrong answer. The caller
// owns the returned body and must close it; cancelling ctx aborts the read.
func (c *Client) StreamFeedback(ctx context.Context, sessionID string, request CheckAnswerRequest) (io.ReadCloser, error) {
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quiz/check-answer-stream", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "text/event-stream")
	setSession(httpRequest, sessionID)

	response, err := c.streamClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		defer response.Body.Close()
		return nil, decodeAPIError(response)
	}
	return response.Body, nil
}

// Syncer adapts the client to the store's background question sync.
func (c *Client) Syncer(sessionID string) quiz.QuestionSyncer {
	return questionSyncer{client: c, sessionID: sessionID}
}

type questionSyncer struct {
	client    *Client
	sessionID string
}

func (s questionSyncer) SyncQuestion(ctx context.Context, question quiz.Question) error {
	_, err := s.client.UpdateQuestion(ctx, s.sessionID, question)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path, sessionID string, requestBody any, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	setSession(request, sessionID)

	return c.do(request, responseBody)
}

func (c *Client) do(request *http.Request, responseBody any) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(response)
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}

func decodeAPIError(response *http.Response) error {
	apiErr := APIError{StatusCode: response.StatusCode}
	var payload errorResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.message()
	}
	if apiErr.Message == "" {
		apiErr.Message = response.Status
	}
	return &apiErr
}

func setSession(request *http.Request, sessionID string) {
	if sessionID = strings.TrimSpace(sessionID); sessionID != "" {
		request.Header.Set(SessionHeader, sessionID)
	}
}
