package internal

import (
	"github.com/yamar8/lovetree-backend/internal/service"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/security"
	"github.com/yamar8/lovetree-backend/pkg/validators"

	"gorm.io/gorm"
)

// Deps is handed to every handler
type Deps struct {
	DB       *gorm.DB
	Users    *store.Users
	Products *store.Products
	Tokens   *security.TokenManager
	Auth     *service.Authenticator
	Profile  *service.ProfileManager
	Catalog  *service.Catalog
	// Limits for product images
	ImageRules validators.ImageRules
}
