package controllers

import (
	"net/http"

	"github.com/dcode-github/rental_marketplace/backend/services"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func UpdateProfile(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var update services.ProfileUpdate
		if !decodeJSON(w, r, &update) {
			return
		}

		profile, err := users.UpdateProfile(r.Context(), userID, update)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Profile updated", profile)
	}
}

func ChangePassword(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var change services.PasswordChange
		if !decodeJSON(w, r, &change) {
			return
		}

		if err := users.ChangePassword(r.Context(), userID, change); err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Password updated successfully", nil)
	}
}

// CheckNickname is public; a signed-in caller's own nickname reads as available.
func CheckNickname(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var viewer *primitive.ObjectID
		if id, ok := currentUserID(r); ok {
			viewer = &id
		}

		result, err := users.CheckNickname(r.Context(), r.URL.Query().Get("nickname"), viewer)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Checked nickname", result)
	}
}

func GetPublicProfile(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := users.GetPublicProfile(r.Context(), mux.Vars(r)["nickname"])
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched profile", profile)
	}
}

func GetUserProperties(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := requireUser(w, r)
		if !ok {
			return
		}
		ownerID, ok := pathID(w, r, "user")
		if !ok {
			return
		}

		page, err := properties.ListOwnerProperties(r.Context(), ownerID, viewerID, queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched properties", page)
	}
}
