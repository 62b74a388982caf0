package controllers

import (
	"net/http"

	"github.com/dcode-github/rental_marketplace/backend/services"
)

func RegisterUser(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.RegisterInput
		if !decodeJSON(w, r, &input) {
			return
		}

		user, err := users.Register(r.Context(), input)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeData(w, http.StatusCreated, "User registered successfully", user)
	}
}

func LoginUser(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.LoginInput
		if !decodeJSON(w, r, &input) {
			return
		}

		res, err := users.Login(r.Context(), input)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeData(w, http.StatusOK, "Login successful", res)
	}
}

func GetProfile(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		profile, err := users.GetProfile(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched profile", profile)
	}
}
