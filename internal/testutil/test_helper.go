package testutil

import (
	"testing"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// TestJWTSecret signs tokens in handler tests.
const TestJWTSecret = "test-secret-key-for-testing-only"

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, name string, tier models.Tier) *models.User {
	if id == 0 {
		id = 1
	}
	if name == "" {
		name = "Test Trader"
	}
	if tier == "" {
		tier = models.TierFree
	}
	return &models.User{
		ID:        id,
		Name:      name,
		Phone:     "+910000000000",
		Tier:      tier,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestGroup creates a local group for the chapter of hsChapter.
func (h *TestHelper) CreateTestGroup(id uint, name, hsChapter string) *models.Group {
	if name == "" {
		name = "Cereals"
	}
	if hsChapter == "" {
		hsChapter = "10"
	}
	return &models.Group{
		ID:        id,
		Name:      name,
		HSChapter: hsChapter,
		Scope:     models.ScopeLocal,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestLead creates a pending sell lead with every required field set
func (h *TestHelper) CreateTestLead(id, groupID, authorID uint) *models.Lead {
	return &models.Lead{
		ID:                  id,
		GroupID:             groupID,
		AuthorID:            authorID,
		Type:                models.LeadSell,
		HSCode:              "100190",
		Description:         "Durum wheat, milling grade",
		Quantity:            "50 MT",
		Packing:             "50kg bags",
		TargetPrice:         "USD 310/MT",
		SellerPickupAddress: "Kandla port",
		Status:              models.LeadPending,
		Broadcast:           models.BroadcastNone,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns gorm.ErrRecordNotFound
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}

// SignToken issues a session token the way the identity service does.
func SignToken(userID uint, name string, tier models.Tier, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"name":    name,
		"phone":   "+910000000000",
		"tier":    string(tier),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		panic(err)
	}
	return token
}
