package controllers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	UserIDKey = ContextKey("userID")
	RoleKey   = ContextKey("role")
)

// currentUserID reads the authenticated user placed in the context by the
// auth middleware.
func currentUserID(r *http.Request) (primitive.ObjectID, bool) {
	raw, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func requireUser(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, ok := currentUserID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User ID missing in context")
	}
	return id, ok
}
