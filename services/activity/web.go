package activity

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/runningcoach/backend/lib/mycontext"
	"github.com/runningcoach/backend/lib/myhttp"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mypubsub"
	"github.com/runningcoach/backend/lib/mystore"
	"github.com/runningcoach/backend/lib/mytime"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/oauth/oauthevents"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/strava"
)

//go:generate mockgen -source=web.go -package activity -destination service_mock.go Service
type Service interface {
	RecentActivities(c context.Context) (ActivitySnapshot, error)
	PersonalRecords(c context.Context) (map[string]*PersonalRecord, error)
	WeeklySummary(c context.Context) (WeekSummary, error)
}

type webService struct {
	service *service
	logger  mylog.Logger
}

func NewService(snapshotStore mystore.Store[ActivitySnapshot], vault myvault.VaultReader[oauthvault.Token], stravaClient strava.Client, nower mytime.Nower, pubsub mypubsub.PubSub, pub mypublisher.Publisher) *webService {
	return &webService{
		service: newService(snapshotStore, vault, stravaClient, nower, pubsub, pub),
		logger:  mylog.New("activity"),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/activities/sync", s.syncPage()).Methods("POST")
	router.HandleFunc("/api/activities", s.activitiesPage()).Methods("GET")
	router.HandleFunc("/api/records", s.recordsPage()).Methods("GET")

	router.HandleFunc("/api/activity/event", s.eventPage()).Methods("POST")

	err := s.service.CreateTopics(c)
	if err != nil {
		return err
	}

	err = s.service.Subscribe(c)
	if err != nil {
		return err
	}

	return nil
}

func (s *webService) RecentActivities(c context.Context) (ActivitySnapshot, error) {
	return s.service.recentActivities(c)
}

func (s *webService) PersonalRecords(c context.Context) (map[string]*PersonalRecord, error) {
	return s.service.personalRecords(c)
}

func (s *webService) WeeklySummary(c context.Context) (WeekSummary, error) {
	return s.service.weeklySummary(c)
}

func (s *webService) syncPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		snapshot, err := s.service.sync(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, snapshot)
	}
}

func (s *webService) activitiesPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		snapshot, err := s.service.recentActivities(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, snapshot)
	}
}

func (s *webService) recordsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		records, err := s.service.personalRecords(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, records)
	}
}

func (s *webService) eventPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := oauthevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Event processed",
		})
	}
}
