package settings

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/runningcoach/backend/lib/mycontext"
	"github.com/runningcoach/backend/lib/myhttp"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mystore"
)

//go:generate mockgen -source=web.go -package settings -destination service_mock.go Service
type Service interface {
	GetSettings(c context.Context) (Settings, error)
}

type webService struct {
	service *service
	logger  mylog.Logger
}

func NewService(settingsStore mystore.Store[Settings], pub mypublisher.Publisher) *webService {
	return &webService{
		service: newService(settingsStore, pub),
		logger:  mylog.New("settings"),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/settings", s.settingsPage()).Methods("GET")
	router.HandleFunc("/settings", s.updatePage()).Methods("POST")

	err := s.service.CreateTopics(c)
	if err != nil {
		return err
	}

	return nil
}

func (s *webService) GetSettings(c context.Context) (Settings, error) {
	return s.service.getSettings(c)
}

func (s *webService) settingsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		settings, err := s.service.getSettings(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, settings)
	}
}

func (s *webService) updatePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		update, err := NewUpdateFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		_, err = s.service.updateSettings(c, update)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}
