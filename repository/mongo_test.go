package repository

import (
	"errors"
	"testing"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKey() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
}

func TestRetryOnDuplicate(t *testing.T) {
	calls := 0
	err := retryOnDuplicate(func() error {
		calls++
		if calls == 1 {
			return duplicateKey()
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("lost upsert race should be retried once: calls=%d err=%v", calls, err)
	}

	calls = 0
	err = retryOnDuplicate(func() error {
		calls++
		return duplicateKey()
	})
	if !mongo.IsDuplicateKeyError(err) || calls != 2 {
		t.Fatalf("expected the second failure after one retry: calls=%d err=%v", calls, err)
	}

	calls = 0
	boom := errors.New("network down")
	err = retryOnDuplicate(func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("other errors must not be retried: calls=%d err=%v", calls, err)
	}
}

func TestUserQuery(t *testing.T) {
	active := true
	q := userQuery(UserFilter{Role: models.RoleAgent, IsActive: &active})
	if q["role"] != models.RoleAgent || q["isActive"] != true || len(q) != 2 {
		t.Fatalf("unexpected query %v", q)
	}

	q = userQuery(UserFilter{Search: "a.b"})
	or, ok := q["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("search should match name or email: %v", q)
	}
	re := or[0].(bson.M)["name"].(primitive.Regex)
	if re.Pattern != `a\.b` || re.Options != "i" {
		t.Fatalf("search must be literal and case-insensitive: %+v", re)
	}

	// unverified already uses $or, so search joins it under $and.
	q = userQuery(UserFilter{VerificationStatus: models.VerificationUnverified, Search: "ada"})
	if _, clash := q["$or"]; clash {
		t.Fatalf("status and search overwrote each other: %v", q)
	}
	and, ok := q["$and"].(bson.A)
	if !ok || len(and) != 2 {
		t.Fatalf("expected both clauses under $and: %v", q)
	}
}

func TestPropertyQuery(t *testing.T) {
	q := propertyQuery(PropertyFilter{})
	if hidden, ok := q["isHidden"].(bson.M); !ok || hidden["$ne"] != true {
		t.Fatalf("hidden listings should be excluded by default: %v", q)
	}

	owner := primitive.NewObjectID()
	lo := 10.0
	q = propertyQuery(PropertyFilter{Owner: &owner, IncludeHidden: true, MinPrice: &lo, Bedrooms: 2, Query: "garden"})
	if _, ok := q["isHidden"]; ok {
		t.Fatalf("IncludeHidden should drop the hidden clause: %v", q)
	}
	if q["owner"] != owner {
		t.Fatalf("owner not set: %v", q)
	}
	price := q["price"].(bson.M)
	if price["$gte"] != 10.0 || len(price) != 1 {
		t.Fatalf("unexpected price clause %v", price)
	}
	if beds := q["bedrooms"].(bson.M); beds["$gte"] != 2 {
		t.Fatalf("unexpected bedrooms clause %v", beds)
	}
	if text := q["$text"].(bson.M); text["$search"] != "garden" {
		t.Fatalf("unexpected text clause %v", text)
	}
}
