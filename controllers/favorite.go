package controllers

import (
	"net/http"

	"github.com/dcode-github/rental_marketplace/backend/services"
)

// ToggleLike likes the property, or unlikes it when already liked, and
// mirrors the change into the caller's favorites.
func ToggleLike(properties *services.PropertyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		propertyID, ok := pathID(w, r, "property")
		if !ok {
			return
		}

		property, err := properties.ToggleLikeAndFavorite(r.Context(), propertyID, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		liked := false
		for _, id := range property.Likes {
			if id == userID {
				liked = true
				break
			}
		}
		message := "Property removed from favorites"
		if liked {
			message = "Property added to favorites"
		}
		writeData(w, http.StatusOK, message, map[string]interface{}{
			"liked":     liked,
			"likeCount": len(property.Likes),
			"property":  property,
		})
	}
}

func GetFavorites(users *services.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		properties, err := users.GetFavorites(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Fetched favorite properties", properties)
	}
}
