package runware

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/basel-ax/bagtrainer/internal/domain"
)

const (
	taskAuth     = "auth"
	taskTrain    = "train_kohya"
	taskGenerate = "generate_comfyui"
)

// Payload is an encoded request body ready to be posted
type Payload struct {
	ContentType string
	Header      map[string]string
	Body        []byte
	TaskUUID    string
}

// Encoder turns domain requests into vendor request bodies
type Encoder interface {
	EncodeTraining(req domain.TrainingRequest) (*Payload, error)
	EncodeGeneration(req domain.GenerationRequest) (*Payload, error)
}

// NewEncoder returns the encoder for the given wire format, "json" or "multipart"
func NewEncoder(encoding, apiKey string) (Encoder, error) {
	switch encoding {
	case "", "json":
		return &JSONEncoder{APIKey: apiKey, NewTaskID: newTaskID}, nil
	case "multipart":
		return &MultipartEncoder{APIKey: apiKey, NewTaskID: newTaskID}, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

func newTaskID() string {
	return uuid.NewString()
}

type authTask struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type trainTask struct {
	Type      string   `json:"type"`
	TaskUUID  string   `json:"task_uuid"`
	ModelName string   `json:"model_name"`
	ImageType string   `json:"image_type"`
	Images    []string `json:"images"`
}

type generateTask struct {
	Type      string `json:"type"`
	TaskUUID  string `json:"task_uuid"`
	ModelName string `json:"model_name"`
	Prompt    string `json:"prompt"`
}

// JSONEncoder builds the vendor task array: an auth task followed by the
// operation task. Images travel as standard base64 strings.
type JSONEncoder struct {
	APIKey    string
	NewTaskID func() string
}

// EncodeTraining builds the auth and train_kohya tasks
func (e *JSONEncoder) EncodeTraining(req domain.TrainingRequest) (*Payload, error) {
	images := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, base64.StdEncoding.EncodeToString(img.Data))
	}

	task := trainTask{
		Type:      taskTrain,
		TaskUUID:  e.NewTaskID(),
		ModelName: req.ModelName,
		ImageType: string(req.ImageType),
		Images:    images,
	}
	return e.encode(task.TaskUUID, task)
}

// EncodeGeneration builds the auth and generate_comfyui tasks
func (e *JSONEncoder) EncodeGeneration(req domain.GenerationRequest) (*Payload, error) {
	task := generateTask{
		Type:      taskGenerate,
		TaskUUID:  e.NewTaskID(),
		ModelName: req.ModelName,
		Prompt:    req.Prompt,
	}
	return e.encode(task.TaskUUID, task)
}

func (e *JSONEncoder) encode(taskUUID string, task any) (*Payload, error) {
	body, err := json.Marshal([]any{authTask{Type: taskAuth, Token: e.APIKey}, task})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return &Payload{
		ContentType: "application/json",
		Body:        body,
		TaskUUID:    taskUUID,
	}, nil
}

// MultipartEncoder builds a multipart form with one images[] part per
// photo. The key is sent as a bearer token.
type MultipartEncoder struct {
	APIKey    string
	NewTaskID func() string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeTraining builds a form with the photos and training fields
func (e *MultipartEncoder) EncodeTraining(req domain.TrainingRequest) (*Payload, error) {
	taskUUID := e.NewTaskID()
	return e.encode(taskUUID, func(w *multipart.Writer) error {
		for _, img := range req.Images {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images[]"; filename="%s"`, quoteEscaper.Replace(img.Filename)))
			contentType := img.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			h.Set("Content-Type", contentType)

			part, err := w.CreatePart(h)
			if err != nil {
				return fmt.Errorf("failed to create part for %s: %w", img.Filename, err)
			}
			if _, err := part.Write(img.Data); err != nil {
				return fmt.Errorf("failed to write %s: %w", img.Filename, err)
			}
		}
		return writeFields(w,
			"task_uuid", taskUUID,
			"image_type", string(req.ImageType),
			"model_name", req.ModelName,
		)
	})
}

// EncodeGeneration builds a form with the prompt and model name
func (e *MultipartEncoder) EncodeGeneration(req domain.GenerationRequest) (*Payload, error) {
	taskUUID := e.NewTaskID()
	return e.encode(taskUUID, func(w *multipart.Writer) error {
		return writeFields(w,
			"task_uuid", taskUUID,
			"model_name", req.ModelName,
			"prompt", req.Prompt,
		)
	})
}

func (e *MultipartEncoder) encode(taskUUID string, write func(w *multipart.Writer) error) (*Payload, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := write(writer); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return &Payload{
		ContentType: writer.FormDataContentType(),
		Header:      map[string]string{"Authorization": "Bearer " + e.APIKey},
		Body:        body.Bytes(),
		TaskUUID:    taskUUID,
	}, nil
}

// writeFields writes alternating name/value pairs as form fields
func writeFields(w *multipart.Writer, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := w.WriteField(kv[i], kv[i+1]); err != nil {
			return fmt.Errorf("failed to write %s: %w", kv[i], err)
		}
	}
	return nil
}
