package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/authify/identity-api/internal/core/domain"
)

const (
	usersCollection = "users"
	rolesCollection = "roles"
)

// ASP-style minimum; rejections are reported per rule so callers can show
// every violated rule at once.
const minPasswordLength = 6

// IdentityStore persists users and roles in MongoDB and owns the password
// credential lifecycle (bcrypt hashing and verification).
type IdentityStore struct {
	users *mongo.Collection
	roles *mongo.Collection
}

func NewIdentityStore(db *mongo.Database) *IdentityStore {
	return &IdentityStore{
		users: db.Collection(usersCollection),
		roles: db.Collection(rolesCollection),
	}
}

type claimDoc struct {
	Name  string `bson:"name"`
	Value string `bson:"value"`
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Username     string             `bson:"username"`
	FirstName    string             `bson:"first_name"`
	LastName     string             `bson:"last_name"`
	PasswordHash string             `bson:"password_hash"`
	Roles        []string           `bson:"roles"`
	Claims       []claimDoc         `bson:"claims,omitempty"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

type roleDoc struct {
	Name string `bson:"name"`
}

// EnsureSchema creates the unique indexes uniqueness enforcement relies on
// and seeds the built-in roles. Safe to call on every startup.
func (s *IdentityStore) EnsureSchema(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create role index: %w", err)
	}

	for _, name := range []string{domain.RoleUser, domain.RoleAdmin} {
		_, err := s.roles.UpdateOne(ctx,
			bson.M{"name": name},
			bson.M{"$setOnInsert": roleDoc{Name: name}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

func (s *IdentityStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *IdentityStore) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *IdentityStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id can never match a record.
		return nil, domain.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *IdentityStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// CreateUser validates the password against the store's policy, hashes it
// and inserts the record. A duplicate-key rejection from MongoDB is mapped
// to the matching duplicate-identity error even when the caller's own
// pre-check passed; the unique index is the authority.
func (s *IdentityStore) CreateUser(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	if reasons := passwordPolicy(password); len(reasons) > 0 {
		return nil, &domain.StoreError{Reasons: reasons}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	doc := userDoc{
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		PasswordHash: string(hash),
		Roles:        []string{},
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, s.classifyDuplicate(ctx, user.Email)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := doc.toDomain()
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return created, nil
}

// classifyDuplicate decides which unique index rejected the insert.
func (s *IdentityStore) classifyDuplicate(ctx context.Context, email string) error {
	n, err := s.users.CountDocuments(ctx, bson.M{"email": email})
	if err == nil && n > 0 {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateUsername
}

// CheckPassword re-reads the stored hash and compares. The hash is read
// fresh rather than trusted from the caller's user snapshot.
func (s *IdentityStore) CheckPassword(ctx context.Context, user *domain.User, password string) bool {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return false
	}
	var doc struct {
		PasswordHash string `bson:"password_hash"`
	}
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(password)) == nil
}

func (s *IdentityStore) GetUserRoles(ctx context.Context, user *domain.User) ([]string, error) {
	fresh, err := s.FindUserByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	return fresh.Roles, nil
}

func (s *IdentityStore) GetUserClaims(ctx context.Context, user *domain.User) ([]domain.Claim, error) {
	fresh, err := s.FindUserByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	return fresh.Claims, nil
}

func (s *IdentityStore) RoleExists(ctx context.Context, name string) (bool, error) {
	n, err := s.roles.CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return false, fmt.Errorf("count role: %w", err)
	}
	return n > 0, nil
}

func (s *IdentityStore) UserHasRole(ctx context.Context, user *domain.User, name string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return false, domain.ErrUserNotFound
	}
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": oid, "roles": name})
	if err != nil {
		return false, fmt.Errorf("membership check: %w", err)
	}
	return n > 0, nil
}

// AddUserToRole grants the role with $addToSet, so a concurrent duplicate
// grant degrades to a no-op instead of a double entry.
func (s *IdentityStore) AddUserToRole(ctx context.Context, user *domain.User, name string) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$addToSet": bson.M{"roles": name},
			"$set":      bson.M{"updated_at": time.Now().UTC().Unix()},
		},
	)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (d *userDoc) toDomain() *domain.User {
	claims := make([]domain.Claim, 0, len(d.Claims))
	for _, c := range d.Claims {
		claims = append(claims, domain.Claim{Name: c.Name, Value: c.Value})
	}
	u := &domain.User{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Username:  d.Username,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Roles:     d.Roles,
		Claims:    claims,
		CreatedAt: unixToTime(d.CreatedAt),
		UpdatedAt: unixToTime(d.UpdatedAt),
	}
	if d.ID.IsZero() {
		u.ID = ""
	}
	return u
}

func passwordPolicy(password string) []string {
	var reasons []string
	if len(password) < minPasswordLength {
		reasons = append(reasons, fmt.Sprintf("Passwords must be at least %d characters.", minPasswordLength))
	}
	if password != "" && strings.TrimSpace(password) == "" {
		reasons = append(reasons, "Passwords cannot be whitespace only.")
	}
	return reasons
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
