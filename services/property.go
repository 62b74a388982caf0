package services

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/cache"
	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PropertyInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       float64         `json:"price" validate:"gte=0"`
	Type        string          `json:"type" validate:"required,oneof=sale rent"`
	Category    string          `json:"category" validate:"required,oneof=apartment house land commercial"`
	Bedrooms    int             `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int             `json:"bathrooms" validate:"gte=0"`
	Location    models.Location `json:"location"`
	Features    []string        `json:"features"`
	Images      []string        `json:"images"`
	VideoURL    string          `json:"videoUrl"`
}

// PropertyUpdate carries the fields an owner may change. Nil means unchanged.
type PropertyUpdate struct {
	Title       *string          `json:"title" validate:"omitempty,min=1"`
	Description *string          `json:"description" validate:"omitempty,min=1"`
	Price       *float64         `json:"price" validate:"omitempty,gte=0"`
	Type        *string          `json:"type" validate:"omitempty,oneof=sale rent"`
	Category    *string          `json:"category" validate:"omitempty,oneof=apartment house land commercial"`
	Bedrooms    *int             `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms   *int             `json:"bathrooms" validate:"omitempty,gte=0"`
	Location    *models.Location `json:"location"`
	Features    []string         `json:"features"`
	Images      []string         `json:"images"`
	VideoURL    *string          `json:"videoUrl"`
	IsHidden    *bool            `json:"isHidden"`
}

type StatusChange struct {
	Status      string              `json:"status" validate:"required,oneof=available pending rented"`
	Tenant      *primitive.ObjectID `json:"tenant"`
	RentedUntil *time.Time          `json:"rentedUntil"`
}

// SearchQuery is a full-text search narrowed by optional filters.
type SearchQuery struct {
	Query    string   `validate:"required,min=2"`
	Type     string   `validate:"omitempty,oneof=sale rent"`
	Category string   `validate:"omitempty,oneof=apartment house land commercial"`
	State    string
	MinPrice *float64 `validate:"omitempty,gte=0"`
	MaxPrice *float64 `validate:"omitempty,gte=0"`
	Bedrooms int      `validate:"gte=0"`
}

type PropertyPage struct {
	Properties []models.Property `json:"properties"`
	Page       int               `json:"page"`
	Pages      int               `json:"pages"`
	Total      int64             `json:"total"`
}

type propertyStore interface {
	repository.PropertyRepository
	repository.UserRepository
	repository.Transactor
}

type PropertyService struct {
	store    propertyStore
	cache    cache.ListingCache
	activity *ActivityLogger
	now      func() time.Time
}

func NewPropertyService(store propertyStore, listingCache cache.ListingCache, activity *ActivityLogger) *PropertyService {
	if listingCache == nil {
		listingCache = cache.Noop{}
	}
	return &PropertyService{store: store, cache: listingCache, activity: activity, now: time.Now}
}

func (s *PropertyService) invalidateListings() {
	go s.cache.Invalidate(context.Background())
}

func (s *PropertyService) CreateProperty(ctx context.Context, ownerID primitive.ObjectID, input PropertyInput) (*models.Property, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	property := &models.Property{
		ID:          primitive.NewObjectID(),
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Type:        input.Type,
		Category:    input.Category,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		Location:    input.Location,
		Features:    input.Features,
		Images:      input.Images,
		VideoURL:    input.VideoURL,
		Status:      models.PropertyAvailable,
		Owner:       ownerID,
		Likes:       []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateProperty(ctx, property); err != nil {
		return nil, storeError("property", err)
	}
	s.invalidateListings()

	s.activity.LogActivity(ctx, models.ActivityPropertyListed, ownerID, map[string]interface{}{
		"propertyId": property.ID.Hex(),
		"title":      property.Title,
	})
	s.activity.IncrementMetric(ctx, models.MetricNewProperties)

	return property, nil
}

func (s *PropertyService) GetProperty(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	property, err := s.store.FindPropertyByID(ctx, id)
	if err != nil {
		return nil, storeError("property", err)
	}
	return property, nil
}

// ListProperties serves listing pages from the cache when possible.
func (s *PropertyService) ListProperties(ctx context.Context, filter repository.PropertyFilter, page, limit int) (*PropertyPage, error) {
	page, limit, _ = pageBounds(page, limit, 10, 100)

	key := cache.ListingKey(url.Values{
		"type":     {filter.Type},
		"category": {filter.Category},
		"state":    {filter.State},
		"page":     {strconv.Itoa(page)},
		"limit":    {strconv.Itoa(limit)},
	})
	if cached, ok := s.cache.Get(ctx, key); ok {
		var result PropertyPage
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
		log.Printf("Discarding unreadable cache entry %s", key)
	}

	result, err := s.listPage(ctx, filter, page, limit, 10)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, data)
	} else {
		log.Printf("Failed to serialize properties: %v", err)
	}
	return result, nil
}

// ListOwnerProperties lists the properties of ownerID. Hidden listings are
// included only when the owner is the viewer.
func (s *PropertyService) ListOwnerProperties(ctx context.Context, ownerID, viewerID primitive.ObjectID, page, limit int) (*PropertyPage, error) {
	if _, err := s.store.FindUserByID(ctx, ownerID); err != nil {
		return nil, storeError("user", err)
	}
	filter := repository.PropertyFilter{Owner: &ownerID, IncludeHidden: ownerID == viewerID}
	return s.listPage(ctx, filter, page, limit, 20)
}

// SearchProperties runs a text search. Results bypass the listing cache.
func (s *PropertyService) SearchProperties(ctx context.Context, query SearchQuery, page, limit int) (*PropertyPage, error) {
	query.Query = strings.TrimSpace(query.Query)
	if err := validateInput(query); err != nil {
		return nil, err
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		return nil, validationError("minPrice must not exceed maxPrice")
	}

	filter := repository.PropertyFilter{
		Type:     query.Type,
		Category: query.Category,
		State:    query.State,
		MinPrice: query.MinPrice,
		MaxPrice: query.MaxPrice,
		Bedrooms: query.Bedrooms,
		Query:    query.Query,
	}
	return s.listPage(ctx, filter, page, limit, 10)
}

func (s *PropertyService) listPage(ctx context.Context, filter repository.PropertyFilter, page, limit, defaultLimit int) (*PropertyPage, error) {
	page, limit, skip := pageBounds(page, limit, defaultLimit, 100)

	properties, err := s.store.ListProperties(ctx, filter, skip, int64(limit))
	if err != nil {
		return nil, storeError("properties", err)
	}
	total, err := s.store.CountProperties(ctx, filter)
	if err != nil {
		return nil, storeError("properties", err)
	}
	if properties == nil {
		properties = []models.Property{}
	}
	return &PropertyPage{Properties: properties, Page: page, Pages: pageCount(total, limit), Total: total}, nil
}

func (s *PropertyService) loadOwned(ctx context.Context, id, ownerID primitive.ObjectID) (*models.Property, error) {
	property, err := s.store.FindPropertyByID(ctx, id)
	if err != nil {
		return nil, storeError("property", err)
	}
	if property.Owner != ownerID {
		return nil, ErrNotOwner
	}
	return property, nil
}

func (s *PropertyService) UpdateProperty(ctx context.Context, id, ownerID primitive.ObjectID, update PropertyUpdate) (*models.Property, error) {
	if err := validateInput(update); err != nil {
		return nil, err
	}

	property, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		property.Title = *update.Title
	}
	if update.Description != nil {
		property.Description = *update.Description
	}
	if update.Price != nil {
		property.Price = *update.Price
	}
	if update.Type != nil {
		property.Type = *update.Type
	}
	if update.Category != nil {
		property.Category = *update.Category
	}
	if update.Bedrooms != nil {
		property.Bedrooms = *update.Bedrooms
	}
	if update.Bathrooms != nil {
		property.Bathrooms = *update.Bathrooms
	}
	if update.Location != nil {
		property.Location = *update.Location
	}
	if update.Features != nil {
		property.Features = update.Features
	}
	if update.Images != nil {
		property.Images = update.Images
	}
	if update.VideoURL != nil {
		property.VideoURL = *update.VideoURL
	}
	if update.IsHidden != nil {
		property.IsHidden = *update.IsHidden
	}
	property.UpdatedAt = s.now()

	if err := s.store.SaveProperty(ctx, property); err != nil {
		return nil, storeError("property", err)
	}
	s.invalidateListings()

	s.activity.LogActivity(ctx, models.ActivityPropertyUpdated, ownerID, map[string]interface{}{
		"propertyId": property.ID.Hex(),
	})
	return property, nil
}

// UpdatePropertyStatus is the owner-initiated status change. Rented needs
// a tenant; available clears every rental field.
func (s *PropertyService) UpdatePropertyStatus(ctx context.Context, id, ownerID primitive.ObjectID, change StatusChange) (*models.Property, error) {
	if err := validateInput(change); err != nil {
		return nil, err
	}
	if change.Status == models.PropertyRented && change.Tenant == nil {
		return nil, validationError("a tenant is required to mark a property rented")
	}

	property, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch change.Status {
	case models.PropertyAvailable:
		property.MarkAvailable()
	case models.PropertyRented:
		if property.Status != models.PropertyRented || property.CurrentTenant == nil || *property.CurrentTenant != *change.Tenant {
			property.MarkRented(*change.Tenant, now)
		}
		property.RentedUntil = change.RentedUntil
	case models.PropertyPending:
		property.Status = models.PropertyPending
	}
	property.UpdatedAt = now

	if err := s.store.SaveProperty(ctx, property); err != nil {
		return nil, storeError("property", err)
	}
	s.invalidateListings()

	s.activity.LogActivity(ctx, models.ActivityPropertyUpdated, ownerID, map[string]interface{}{
		"propertyId": property.ID.Hex(),
		"status":     property.Status,
	})
	return property, nil
}

// DeleteProperty removes the property and its id from every user's
// favorites in one transaction.
func (s *PropertyService) DeleteProperty(ctx context.Context, id, ownerID primitive.ObjectID) error {
	var title string
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		property, err := s.loadOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}
		title = property.Title

		if err := s.store.PullFavoriteFromAll(ctx, id); err != nil {
			return storeError("users", err)
		}
		return storeError("property", s.store.DeleteProperty(ctx, id))
	})
	if err != nil {
		return err
	}
	s.invalidateListings()

	s.activity.LogActivity(ctx, models.ActivityPropertyDeleted, ownerID, map[string]interface{}{
		"propertyId": id.Hex(),
		"title":      title,
	})
	return nil
}

// ToggleLikeAndFavorite flips the like of userID on the property and keeps
// User.favoriteProperties in step. Property.likes decides the direction.
func (s *PropertyService) ToggleLikeAndFavorite(ctx context.Context, propertyID, userID primitive.ObjectID) (*models.Property, error) {
	var updated *models.Property

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		property, err := s.store.FindPropertyByID(ctx, propertyID)
		if err != nil {
			return storeError("property", err)
		}
		if _, err := s.store.FindUserByID(ctx, userID); err != nil {
			return storeError("user", err)
		}

		if containsID(property.Likes, userID) {
			if err := s.store.PullLike(ctx, propertyID, userID); err != nil {
				return storeError("property", err)
			}
			if err := s.store.PullFavorite(ctx, userID, propertyID); err != nil {
				return storeError("user", err)
			}
		} else {
			if err := s.store.AddLike(ctx, propertyID, userID); err != nil {
				return storeError("property", err)
			}
			if err := s.store.AddFavorite(ctx, userID, propertyID); err != nil {
				return storeError("user", err)
			}
		}

		updated, err = s.store.FindPropertyByID(ctx, propertyID)
		return storeError("property", err)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateListings()
	return updated, nil
}
