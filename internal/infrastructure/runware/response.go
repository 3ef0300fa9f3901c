package runware

import (
	"bytes"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/basel-ax/bagtrainer/internal/domain"
)

// maxRawBody caps how much of an unparsed vendor body ends up in a message
const maxRawBody = 512

var (
	errorPaths    = []string{"errors.0.message", "errors.0.error", "error.message", "error", "detail"}
	imageURLPaths = []string{"data.0.imageURL", "data.0.image_url", "data.0.url", "imageURL", "image_url", "url"}
	modelIDPaths  = []string{"data.0.modelId", "data.0.model_id", "modelId", "model_id"}
)

// firstString returns the first non-empty string value found at paths
func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// vendorErrorText returns the error message the vendor put in body, if any
func vendorErrorText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return firstString(body, errorPaths...)
}

func rawText(statusCode int, body []byte) string {
	b := bytes.TrimSpace(body)
	if len(b) == 0 {
		return http.StatusText(statusCode)
	}
	if len(b) > maxRawBody {
		n := maxRawBody
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
		return string(b[:n]) + "..."
	}
	return string(b)
}

// checkResponse maps the failure cases shared by every operation. A nil
// return means the body is valid JSON from a 200 response without an
// error field.
func checkResponse(statusCode int, body []byte) *domain.Error {
	if statusCode != http.StatusOK {
		if msg := vendorErrorText(body); msg != "" {
			return domain.NewVendorError(statusCode, msg)
		}
		return domain.NewVendorError(statusCode, rawText(statusCode, body))
	}
	if !gjson.ValidBytes(body) {
		return domain.NewResponseShapeError(statusCode, fmt.Sprintf("malformed response body: %s", rawText(statusCode, body)))
	}
	if msg := vendorErrorText(body); msg != "" {
		return domain.NewVendorError(statusCode, msg)
	}
	return nil
}

// NormalizeTraining maps a vendor response to a training submission into an Outcome
func NormalizeTraining(statusCode int, body []byte, modelName string) domain.Outcome {
	if err := checkResponse(statusCode, body); err != nil {
		return domain.Failure(err)
	}

	out := domain.Success(fmt.Sprintf("training started for model %q", modelName))
	out.ModelID = firstString(body, modelIDPaths...)
	if out.ModelID != "" {
		out.Message = fmt.Sprintf("training started for model %q (id %s)", modelName, out.ModelID)
	}
	return out
}

// NormalizeGeneration maps a vendor response to a generation request into an Outcome
func NormalizeGeneration(statusCode int, body []byte) domain.Outcome {
	if err := checkResponse(statusCode, body); err != nil {
		return domain.Failure(err)
	}

	imageURL := firstString(body, imageURLPaths...)
	if imageURL == "" {
		return domain.Failure(domain.NewResponseShapeError(statusCode, "missing image URL in response"))
	}

	out := domain.Success("image generated")
	out.ImageURL = imageURL
	return out
}
