package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/services"
)

type submitVerificationRequest struct {
	IDType             string         `json:"idType"`
	IDNumber           string         `json:"idNumber"`
	ResidentialAddress models.Address `json:"residentialAddress"`
	DocumentURL        string         `json:"documentUrl"`
}

type rejectVerificationRequest struct {
	Reason string `json:"reason"`
}

func SubmitVerification(verifications *services.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req submitVerificationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := verifications.SubmitVerification(r.Context(), userID, services.VerificationInput{
			IDType:             req.IDType,
			IDNumber:           req.IDNumber,
			ResidentialAddress: req.ResidentialAddress,
		}, req.DocumentURL)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, "Verification request submitted successfully. Please wait for admin review.", res)
	}
}

func GetVerificationStatus(verifications *services.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		status, err := verifications.GetVerificationStatus(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched verification status", status)
	}
}

func GetPendingVerifications(verifications *services.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := verifications.GetPendingVerifications(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched pending verifications", page)
	}
}

func GetVerificationStats(verifications *services.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := verifications.GetVerificationStats(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched verification stats", stats)
	}
}

func ApproveVerification(verifications *services.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := requireUser(w, r)
		if !ok {
			return
		}
		userID, ok := pathID(w, r, "user")
		if !ok {
			return
		}

		res, err := verifications.ApproveVerification(r.Context(), userID, adminID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "User verification approved successfully", res)
	}
}

func RejectVerification(verifications *services.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := requireUser(w, r)
		if !ok {
			return
		}
		userID, ok := pathID(w, r, "user")
		if !ok {
			return
		}

		// The reason is optional, so an empty body is accepted.
		var req rejectVerificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			log.Printf("Invalid request body: %v", err)
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := verifications.RejectVerification(r.Context(), userID, adminID, req.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "User verification rejected", res)
	}
}
