package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

const collectionUsers = "users"

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDocument struct {
	ID          int64          `bson:"_id"`
	UserName    string         `bson:"user_name"`
	FullName    string         `bson:"full_name"`
	Email       string         `bson:"email"`
	Phone       string         `bson:"phone,omitempty"`
	BirthDay    *time.Time     `bson:"birth_day,omitempty"`
	Gender      string         `bson:"gender,omitempty"`
	Status      string         `bson:"status"`
	CreatedBy   string         `bson:"created_by,omitempty"`
	CreatedTime *time.Time     `bson:"created_time,omitempty"`
	UpdatedBy   string         `bson:"updated_by,omitempty"`
	UpdatedTime *time.Time     `bson:"updated_time,omitempty"`
	Roles       []roleDocument `bson:"user_roles"`
}

type roleDocument struct {
	ID       int64      `bson:"id"`
	Type     string     `bson:"type,omitempty"`
	Bank     string     `bson:"bank"`
	Branch   string     `bson:"branch"`
	RoleName string     `bson:"role_name"`
	FromDate *time.Time `bson:"from_date,omitempty"`
	ToDate   *time.Time `bson:"to_date,omitempty"`
}

func toDocument(u *domain.User) userDocument {
	doc := userDocument{
		ID:          u.ID,
		UserName:    u.UserName,
		FullName:    u.FullName,
		Email:       u.Email,
		Phone:       u.Phone,
		BirthDay:    dateToTime(u.BirthDay),
		Gender:      u.Gender,
		Status:      string(u.Status),
		CreatedBy:   u.CreatedBy,
		CreatedTime: stampToTime(u.CreatedTime),
		UpdatedBy:   u.UpdatedBy,
		UpdatedTime: stampToTime(u.UpdatedTime),
		Roles:       make([]roleDocument, 0, len(u.UserRoles)),
	}
	for _, r := range u.UserRoles {
		id, _ := r.PersistedID()
		doc.Roles = append(doc.Roles, roleDocument{
			ID:       id,
			Type:     r.Type,
			Bank:     r.Bank,
			Branch:   r.Branch,
			RoleName: r.RoleName,
			FromDate: dateToTime(r.FromDate),
			ToDate:   dateToTime(r.ToDate),
		})
	}
	return doc
}

func (d userDocument) toDomain() domain.User {
	u := domain.User{
		ID:          d.ID,
		UserName:    d.UserName,
		FullName:    d.FullName,
		Email:       d.Email,
		Phone:       d.Phone,
		BirthDay:    timeToDate(d.BirthDay),
		Gender:      d.Gender,
		Status:      domain.UserStatus(d.Status),
		CreatedBy:   d.CreatedBy,
		CreatedTime: timeToStamp(d.CreatedTime),
		UpdatedBy:   d.UpdatedBy,
		UpdatedTime: timeToStamp(d.UpdatedTime),
		UserRoles:   make([]domain.UserRole, 0, len(d.Roles)),
	}
	for _, r := range d.Roles {
		u.UserRoles = append(u.UserRoles, domain.UserRole{
			Ref:      domain.PersistedRole{ID: r.ID},
			Type:     r.Type,
			Bank:     r.Bank,
			Branch:   r.Branch,
			RoleName: r.RoleName,
			FromDate: timeToDate(r.FromDate),
			ToDate:   timeToDate(r.ToDate),
		})
	}
	return u
}

// keywordFilter matches userName, fullName or email case-insensitively.
func keywordFilter(keyword string) bson.M {
	if keyword == "" {
		return bson.M{}
	}
	pattern := bson.M{"$regex": regexp.QuoteMeta(keyword), "$options": "i"}
	return bson.M{"$or": bson.A{
		bson.M{"user_name": pattern},
		bson.M{"full_name": pattern},
		bson.M{"email": pattern},
	}}
}

// List returns one page of users ordered by creation time, newest first.
func (r *UserRepository) List(ctx context.Context, f ports.UserFilter) ([]domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := keywordFilter(f.Keyword)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_time", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Page) * int64(f.Size)).
		SetLimit(int64(f.Size))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	users, err := decodeUsers(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *UserRepository) FindByUserNames(ctx context.Context, userNames []string) ([]domain.User, error) {
	if len(userNames) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"user_name": bson.M{"$in": userNames}})
	if err != nil {
		return nil, fmt.Errorf("find users by name: %w", err)
	}
	return decodeUsers(ctx, cur)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toDocument(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, toDocument(u))
	if err != nil {
		return fmt.Errorf("replace user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SaveAll upserts the users in a single unordered bulk write.
func (r *UserRepository) SaveAll(ctx context.Context, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(users))
	for i := range users {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": users[i].ID}).
			SetReplacement(toDocument(&users[i])).
			SetUpsert(true))
	}
	if _, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique user name index and the listing index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_time", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func decodeUsers(ctx context.Context, cur *mongo.Cursor) ([]domain.User, error) {
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

func dateToTime(d *domain.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func timeToDate(t *time.Time) *domain.Date {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}

func stampToTime(ts *domain.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.UTC()
	return &t
}

func timeToStamp(t *time.Time) *domain.Timestamp {
	if t == nil {
		return nil
	}
	return domain.NewTimestamp(*t)
}
