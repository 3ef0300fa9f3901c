package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/basel-ax/bagtrainer/internal/domain"
	"github.com/basel-ax/bagtrainer/internal/repository"
)

// Memory kept for multipart parts before spilling to temp files
const multipartMemory = 32 << 20

type banner struct {
	Level string
	Text  string
}

type page struct {
	ImageTypes []domain.ImageType
	ImageType  domain.ImageType
	ModelName  string
	Prompt     string
	Banner     *banner
	ImageURL   string
}

type trainForm struct {
	ImageType string `schema:"image_type"`
	ModelName string `schema:"model_name"`
}

type generateForm struct {
	Prompt    string `schema:"prompt"`
	ModelName string `schema:"model_name"`
}

func (s *Server) newPage() *page {
	imageType, _ := domain.ParseImageType(s.cfg.DefaultImageType)
	return &page{
		ImageTypes: domain.ImageTypes,
		ImageType:  imageType,
		ModelName:  s.cfg.DefaultModelName,
	}
}

// Index renders the empty page
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage())
}

// Train handles a multipart upload of training photos
func (s *Server) Train(w http.ResponseWriter, r *http.Request) {
	p := s.newPage()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.renderError(w, http.StatusRequestEntityTooLarge, p, fmt.Sprintf("upload exceeds %d bytes", s.cfg.UploadMaxBytes))
			return
		}
		s.renderError(w, http.StatusBadRequest, p, "unable to parse upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var form trainForm
	if err := s.decoder.Decode(&form, r.PostForm); err != nil {
		s.renderError(w, http.StatusBadRequest, p, "unable to parse form fields")
		return
	}
	if form.ModelName != "" {
		p.ModelName = form.ModelName
	}

	imageType := p.ImageType
	if form.ImageType != "" {
		parsed, err := domain.ParseImageType(form.ImageType)
		if err != nil {
			s.renderError(w, http.StatusBadRequest, p, err.Error())
			return
		}
		imageType = parsed
	}
	p.ImageType = imageType

	images, err := readImages(r.MultipartForm.File["images"])
	if err != nil {
		s.renderError(w, http.StatusBadRequest, p, err.Error())
		return
	}

	out := s.svc.SubmitTraining(r.Context(), domain.TrainingRequest{
		ImageType: imageType,
		ModelName: p.ModelName,
		Images:    images,
	})
	if !out.OK() {
		s.renderOutcomeError(w, p, out)
		return
	}

	p.Banner = &banner{Level: "success", Text: fmt.Sprintf("%d images uploaded successfully. %s", len(images), out.Message)}
	s.render(w, http.StatusOK, p)
}

// Generate handles a prompt submission and renders the generated image
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	p := s.newPage()

	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, p, "unable to parse form")
		return
	}

	var form generateForm
	if err := s.decoder.Decode(&form, r.PostForm); err != nil {
		s.renderError(w, http.StatusBadRequest, p, "unable to parse form fields")
		return
	}
	if form.ModelName != "" {
		p.ModelName = form.ModelName
	}
	p.Prompt = form.Prompt

	out := s.svc.SubmitGeneration(r.Context(), domain.GenerationRequest{
		ModelName: p.ModelName,
		Prompt:    form.Prompt,
	})
	if !out.OK() {
		s.renderOutcomeError(w, p, out)
		return
	}

	p.Banner = &banner{Level: "success", Text: "Image generated from model " + p.ModelName}
	p.ImageURL = out.ImageURL
	s.render(w, http.StatusOK, p)
}

// readImages loads every uploaded part, rejecting anything that is not a
// png or jpeg by name
func readImages(files []*multipart.FileHeader) ([]domain.Image, error) {
	images := make([]domain.Image, 0, len(files))
	for _, fh := range files {
		if !repository.IsImageFile(fh.Filename) {
			return nil, fmt.Errorf("%s is not a png or jpeg file", fh.Filename)
		}

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("unable to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", fh.Filename, err)
		}

		images = append(images, domain.Image{
			Filename:    fh.Filename,
			ContentType: repository.DetectContentType(fh.Filename, data),
			Data:        data,
		})
	}
	return images, nil
}

func statusFor(err *domain.Error) int {
	switch {
	case err.Kind == domain.KindValidation:
		return http.StatusBadRequest
	case err.Kind == domain.KindNetwork && err.Timeout():
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) renderOutcomeError(w http.ResponseWriter, p *page, out domain.Outcome) {
	s.renderError(w, statusFor(out.Err), p, out.Message)
}

func (s *Server) renderError(w http.ResponseWriter, code int, p *page, msg string) {
	p.Banner = &banner{Level: "error", Text: msg}
	s.render(w, code, p)
}

func (s *Server) render(w http.ResponseWriter, code int, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pageTemplate.Execute(w, p); err != nil {
		s.logger.Errorw("error rendering page", "error", err)
	}
}
