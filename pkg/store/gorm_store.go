package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"librarium/pkg/domain"
)

const migrateLockID int64 = 51245124

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so that concurrently starting replicas do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&BookModel{},
			&AuthorModel{},
			&LibraryModel{},
			&LibrarianModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "date_of_birth", "profile_photo_key",
			"password_hash", "role", "status", "perms", "updated_at",
		}),
	}).Create(&model).Error
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasUsername checks if username is taken.
func (s *GormStore) HasUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "author", "publication_year", "isbn", "description", "updated_at",
		}),
	}).Create(&model).Error
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// GetBookByISBN retrieves a book by its normalized ISBN.
func (s *GormStore) GetBookByISBN(isbn string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.Where("isbn = ?", isbn).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// DeleteBook removes a book and its library memberships.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM library_books WHERE book_model_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&BookModel{}, "id = ?", id).Error
	})
}

// ListBooks returns books matching the query, ordered by title.
func (s *GormStore) ListBooks(q SearchQuery) ([]domain.Book, error) {
	tx := s.booksQuery(q).Order("title ASC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	var models []BookModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// CountBooks returns the number of books matching the query.
func (s *GormStore) CountBooks(q SearchQuery) (int, error) {
	var count int64
	if err := s.booksQuery(q).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *GormStore) booksQuery(q SearchQuery) *gorm.DB {
	tx := s.db.Model(&BookModel{})
	if q.OwnerID != "" {
		tx = tx.Where("added_by_id = ?", q.OwnerID)
	}
	if q.Year != 0 {
		tx = tx.Where("publication_year = ?", q.Year)
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + escapeLike(text) + "%"
		tx = tx.Where(
			"title ILIKE ? OR author ILIKE ? OR description ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	return tx
}

// escapeLike neutralizes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListBooksByAuthor returns books written by the named author, ordered by title.
func (s *GormStore) ListBooksByAuthor(authorName string) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Where("author = ?", authorName).Order("title ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// GetOrCreateAuthor returns the author with the given name, creating it
// when absent.
func (s *GormStore) GetOrCreateAuthor(name string) (domain.Author, error) {
	var model AuthorModel
	err := s.db.Where("name = ?", name).
		Attrs(AuthorModel{ID: uuid.NewString(), Name: name}).
		FirstOrCreate(&model).Error
	if err != nil {
		return domain.Author{}, err
	}
	return domain.Author{ID: model.ID, Name: model.Name}, nil
}

// ListAuthors returns all authors ordered by name.
func (s *GormStore) ListAuthors() ([]domain.Author, error) {
	var models []AuthorModel
	if err := s.db.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Author, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Author{ID: m.ID, Name: m.Name})
	}
	return res, nil
}

// SaveLibrary stores or updates a library (without touching its book set).
func (s *GormStore) SaveLibrary(l domain.Library) error {
	model := LibraryModel{ID: l.ID, Name: l.Name, CreatedAt: l.CreatedAt}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Omit("Books").Create(&model).Error
}

// GetLibrary retrieves a library with its books preloaded in title order.
func (s *GormStore) GetLibrary(id string) (domain.Library, bool, error) {
	var model LibraryModel
	err := s.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title ASC")
	}).First(&model, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Library{}, false, nil
		}
		return domain.Library{}, false, err
	}
	return libraryFromModel(model), true, nil
}

// ListLibraries returns all libraries without their book sets.
func (s *GormStore) ListLibraries() ([]domain.Library, error) {
	var models []LibraryModel
	if err := s.db.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Library, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Library{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt})
	}
	return res, nil
}

// SetLibraryBooks replaces the library's book set.
func (s *GormStore) SetLibraryBooks(libraryID string, bookIDs []string) error {
	var books []BookModel
	if len(bookIDs) > 0 {
		if err := s.db.Where("id IN ?", bookIDs).Find(&books).Error; err != nil {
			return err
		}
	}
	return s.db.Model(&LibraryModel{ID: libraryID}).Association("Books").Replace(&books)
}

// SaveLibrarian stores or updates a librarian assignment.
func (s *GormStore) SaveLibrarian(l domain.Librarian) error {
	model := LibrarianModel{ID: l.ID, Name: l.Name, LibraryID: l.LibraryID, CreatedAt: l.CreatedAt}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "library_id"}),
	}).Omit("Library").Create(&model).Error
}

// GetLibrarianByLibrary returns the librarian assigned to a library.
func (s *GormStore) GetLibrarianByLibrary(libraryID string) (domain.Librarian, bool, error) {
	var model LibrarianModel
	if err := s.db.Where("library_id = ?", libraryID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Librarian{}, false, nil
		}
		return domain.Librarian{}, false, err
	}
	return domain.Librarian{ID: model.ID, Name: model.Name, LibraryID: model.LibraryID, CreatedAt: model.CreatedAt}, true, nil
}

func userToModel(u domain.User) UserModel {
	var dob *datatypes.Date
	if u.DateOfBirth != nil {
		d := datatypes.Date(*u.DateOfBirth)
		dob = &d
	}
	perms, _ := json.Marshal(u.Perms)
	return UserModel{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		DateOfBirth:     dob,
		ProfilePhotoKey: u.ProfilePhotoKey,
		PasswordHash:    u.PasswordHash,
		Role:            string(u.Role),
		Status:          string(u.Status),
		Perms:           perms,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	var dob *time.Time
	if m.DateOfBirth != nil {
		t := time.Time(*m.DateOfBirth)
		dob = &t
	}
	var perms []domain.Permission
	if len(m.Perms) > 0 {
		_ = json.Unmarshal(m.Perms, &perms)
	}
	status := domain.UserStatus(m.Status)
	if status == "" {
		status = domain.StatusActive
	}
	return domain.User{
		ID:              m.ID,
		Username:        m.Username,
		Email:           m.Email,
		DateOfBirth:     dob,
		ProfilePhotoKey: m.ProfilePhotoKey,
		PasswordHash:    m.PasswordHash,
		Role:            domain.Role(m.Role),
		Status:          status,
		Perms:           perms,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	var isbn *string
	if strings.TrimSpace(b.ISBN) != "" {
		value := strings.TrimSpace(b.ISBN)
		isbn = &value
	}
	var addedBy *string
	if strings.TrimSpace(b.AddedByID) != "" {
		value := strings.TrimSpace(b.AddedByID)
		addedBy = &value
	}
	return BookModel{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		PublicationYear: b.PublicationYear,
		ISBN:            isbn,
		Description:     b.Description,
		AddedByID:       addedBy,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	isbn := ""
	if m.ISBN != nil {
		isbn = *m.ISBN
	}
	addedBy := ""
	if m.AddedByID != nil {
		addedBy = *m.AddedByID
	}
	return domain.Book{
		ID:              m.ID,
		Title:           m.Title,
		Author:          m.Author,
		PublicationYear: m.PublicationYear,
		ISBN:            isbn,
		Description:     m.Description,
		AddedByID:       addedBy,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func libraryFromModel(m LibraryModel) domain.Library {
	books := make([]domain.Book, 0, len(m.Books))
	for _, b := range m.Books {
		books = append(books, bookFromModel(b))
	}
	return domain.Library{ID: m.ID, Name: m.Name, Books: books, CreatedAt: m.CreatedAt}
}
