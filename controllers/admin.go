package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func GetAnalytics(admin *services.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := admin.Analytics(r.Context(), queryInt(r, "days"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched analytics", days)
	}
}

func GetRecentActivity(admin *services.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activities, err := admin.RecentActivity(r.Context(), queryInt(r, "limit"), r.URL.Query().Get("type"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched activity", activities)
	}
}

func GetAuditLogs(admin *services.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := repository.AuditFilter{Action: query.Get("action")}

		var err error
		if filter.Admin, err = optionalID(query, "admin"); err != nil {
			writeError(w, r, err)
			return
		}
		if filter.TargetUser, err = optionalID(query, "targetUser"); err != nil {
			writeError(w, r, err)
			return
		}
		if filter.From, err = optionalTime(query, "from"); err != nil {
			writeError(w, r, err)
			return
		}
		if filter.To, err = optionalTime(query, "to"); err != nil {
			writeError(w, r, err)
			return
		}

		page, err := admin.AuditLogs(r.Context(), filter, queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched audit logs", page)
	}
}

func optionalID(query url.Values, key string) (*primitive.ObjectID, error) {
	raw := query.Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := services.ParseID(key, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalTime(query url.Values, key string) (*time.Time, error) {
	raw := query.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC3339 timestamp", services.ErrValidation, key)
	}
	return &t, nil
}

func GetDashboard(admin *services.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := admin.Dashboard(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched dashboard", dashboard)
	}
}

func ListUsers(admin *services.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := repository.UserFilter{
			Role:               query.Get("role"),
			VerificationStatus: query.Get("verificationStatus"),
			Search:             query.Get("search"),
		}
		if raw := query.Get("isActive"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: isActive must be true or false", services.ErrValidation))
				return
			}
			filter.IsActive = &active
		}

		page, err := admin.ListUsers(r.Context(), filter, queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched users", page)
	}
}

func GetUser(admin *services.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(w, r, "user")
		if !ok {
			return
		}

		details, err := admin.GetUser(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched user", details)
	}
}

func GetLoginHistory(admin *services.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(w, r, "user")
		if !ok {
			return
		}

		history, err := admin.LoginHistory(r.Context(), userID, queryInt(r, "limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched login history", history)
	}
}
