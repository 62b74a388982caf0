package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dcode-github/rental_marketplace/backend/repository"
	"github.com/dcode-github/rental_marketplace/backend/services"
)

func CreateProperty(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var input services.PropertyInput
		if !decodeJSON(w, r, &input) {
			return
		}

		property, err := properties.CreateProperty(r.Context(), userID, input)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, "Property created", property)
	}
}

func GetAllProperties(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := repository.PropertyFilter{
			Type:     query.Get("type"),
			Category: query.Get("category"),
			State:    query.Get("state"),
		}

		page, err := properties.ListProperties(r.Context(), filter, queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched properties", page)
	}
}

func GetPropertyByID(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "property")
		if !ok {
			return
		}

		property, err := properties.GetProperty(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched property", property)
	}
}

func UpdateProperty(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "property")
		if !ok {
			return
		}

		var update services.PropertyUpdate
		if !decodeJSON(w, r, &update) {
			return
		}

		property, err := properties.UpdateProperty(r.Context(), id, userID, update)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Property updated successfully", property)
	}
}

func UpdatePropertyStatus(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "property")
		if !ok {
			return
		}

		var change services.StatusChange
		if !decodeJSON(w, r, &change) {
			return
		}

		property, err := properties.UpdatePropertyStatus(r.Context(), id, userID, change)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Property status updated", property)
	}
}

func DeleteProperty(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "property")
		if !ok {
			return
		}

		if err := properties.DeleteProperty(r.Context(), id, userID); err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Property deleted successfully", nil)
	}
}

func SearchProperties(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		search := services.SearchQuery{
			Query:    query.Get("q"),
			Type:     query.Get("type"),
			Category: query.Get("category"),
			State:    query.Get("state"),
			Bedrooms: queryInt(r, "bedrooms"),
		}

		var err error
		if search.MinPrice, err = optionalFloat(query, "minPrice"); err != nil {
			writeError(w, r, err)
			return
		}
		if search.MaxPrice, err = optionalFloat(query, "maxPrice"); err != nil {
			writeError(w, r, err)
			return
		}

		page, err := properties.SearchProperties(r.Context(), search, queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched properties", page)
	}
}

func optionalFloat(query url.Values, key string) (*float64, error) {
	raw := query.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", services.ErrValidation, key)
	}
	return &v, nil
}
