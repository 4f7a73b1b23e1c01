package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diario-app/diario-back/internal/config"
	"github.com/diario-app/diario-back/internal/db"
	"github.com/diario-app/diario-back/internal/service"
)

type (
	CredentialsReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=12"`
	}

	TokenResp struct {
		Token string `json:"token"`
	}

	BookReq struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
	}

	BookResp struct {
		ID          uint64 `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	TagReq struct {
		Name string `json:"name" validate:"required"`
	}

	TagResp struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}

	EntryReq struct {
		Title   string   `json:"title" validate:"required"`
		Content string   `json:"content" validate:"required"`
		Books   []uint64 `json:"books"`
		Tags    []uint64 `json:"tags"`
	}

	EntryResp struct {
		ID        uint64     `json:"id"`
		CreatedAt time.Time  `json:"created_at"`
		Title     string     `json:"title"`
		Content   string     `json:"content"`
		Books     []BookResp `json:"books"`
		Tags      []TagResp  `json:"tags"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		db     *gorm.DB
		auth   *service.Auth
		diary  *service.Diary
		logger *zap.SugaredLogger
	}
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, gdb *gorm.DB, auth *service.Auth, diary *service.Diary, logger *zap.SugaredLogger) *HTTPServer {
	e := echo.New()

	instance := HTTPServer{
		db:     gdb,
		auth:   auth,
		diary:  diary,
		logger: logger,
	}

	e.POST("/auth/register", instance.Register)
	e.POST("/auth/login", instance.Login)
	e.POST("/auth/logout", instance.Logout)

	bookG := e.Group("/book")
	bookG.GET("", instance.BookList)
	bookG.POST("", instance.BookCreate)
	bookG.DELETE("/:id", instance.BookDelete)

	tagG := e.Group("/tag")
	tagG.GET("", instance.TagList)
	tagG.POST("", instance.TagCreate)
	tagG.DELETE("/:id", instance.TagDelete)

	entryG := e.Group("/entry")
	entryG.GET("", instance.EntryList)
	entryG.POST("", instance.EntryCreate)
	entryG.PUT("/:id", instance.EntryUpdate)
	entryG.DELETE("/:id", instance.EntryDelete)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if len(reqBody) == 0 {
			return
		}
		logger.Debugw("request body", "path", c.Path(), "body", string(censorBody(reqBody)))
	}))

	e.Use(instance.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) Register(c echo.Context) error {
	req := CredentialsReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.auth.Register(req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &TokenResp{Token: token})
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := CredentialsReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		// The auth boundary is the one place raw messages reach the client.
		if errors.Is(err, service.ErrLoginUserNotFound) || errors.Is(err, service.ErrLoginPasswordDoesNotMatch) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, &TokenResp{Token: token})
}

func (s *HTTPServer) Logout(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	if err := s.auth.Logout(user.Token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) BookList(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	books, err := s.diary.ListBooks(user.ID)
	if err != nil {
		return err
	}

	resp := make([]BookResp, len(books))
	for i := range books {
		resp[i] = BookResp{
			ID:          books[i].ID,
			Name:        books[i].Name,
			Description: books[i].Description,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := BookReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	book, err := s.diary.AddBook(user.ID, req.Name, req.Description)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, BookResp{
		ID:          book.ID,
		Name:        book.Name,
		Description: book.Description,
	})
}

func (s *HTTPServer) BookDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.diary.DeleteBook(user.ID, id); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) TagList(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	tags, err := s.diary.ListTags(user.ID)
	if err != nil {
		return err
	}

	resp := make([]TagResp, len(tags))
	for i := range tags {
		resp[i] = TagResp{
			ID:   tags[i].ID,
			Name: tags[i].Name,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := TagReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	tag, err := s.diary.AddTag(user.ID, req.Name)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, TagResp{
		ID:   tag.ID,
		Name: tag.Name,
	})
}

func (s *HTTPServer) TagDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.diary.DeleteTag(user.ID, id); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) EntryList(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	bookID := uint64(0)
	if raw := c.QueryParam("book"); raw != "" && raw != "all" {
		bookID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid query param 'book'")
		}
	}

	entries, err := s.diary.ListEntries(user.ID, bookID)
	if err != nil {
		return err
	}

	// Book membership is already narrowed by the join above; the search
	// term runs over the hydrated aggregates.
	entries = service.FilterEntries(entries, service.BookAll, c.QueryParam("q"))

	resp := make([]EntryResp, len(entries))
	for i := range entries {
		resp[i] = entryResp(entries[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) EntryCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := EntryReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := s.diary.SaveEntry(user.ID, 0, req.Title, req.Content, req.Books, req.Tags)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, entryResp(*entry))
}

func (s *HTTPServer) EntryUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := EntryReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := s.diary.SaveEntry(user.ID, id, req.Title, req.Content, req.Books, req.Tags)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, entryResp(*entry))
}

func (s *HTTPServer) EntryDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.diary.DeleteEntry(user.ID, id); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/auth/register" || c.Path() == "/auth/login" || c.Path() == "/ping" {
			return next(c)
		}
		token := ""
		for key, values := range c.Request().Header {
			if strings.ToLower(key) == "x-token" {
				token = values[0]
				break
			}
		}
		if token == "" {
			return c.NoContent(http.StatusUnauthorized)
		}
		user := db.User{}
		res := s.db.Where("token = ?", token).First(&user)
		if res.Error != nil {
			s.logger.Error(errors.Wrap(res.Error, "find user in db"))
			return c.NoContent(http.StatusUnauthorized)
		}

		c.Set("user", &user)
		return next(c)
	}
}

////////

func entryResp(entry db.Entry) EntryResp {
	books := make([]BookResp, len(entry.Books))
	for i := range entry.Books {
		books[i] = BookResp{
			ID:          entry.Books[i].ID,
			Name:        entry.Books[i].Name,
			Description: entry.Books[i].Description,
		}
	}
	tags := make([]TagResp, len(entry.Tags))
	for i := range entry.Tags {
		tags[i] = TagResp{
			ID:   entry.Tags[i].ID,
			Name: entry.Tags[i].Name,
		}
	}
	return EntryResp{
		ID:        entry.ID,
		CreatedAt: entry.CreatedAt,
		Title:     entry.Title,
		Content:   entry.Content,
		Books:     books,
		Tags:      tags,
	}
}

func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrNameRequired), errors.Is(err, service.ErrEntryIncomplete):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBookNotFound), errors.Is(err, service.ErrTagNotFound), errors.Is(err, service.ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoOwner):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return err
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetUserFromContext(c echo.Context) (*db.User, error) {
	user, ok := c.Get("user").(*db.User)
	if !ok || user == nil {
		return nil, errors.New("no user found in context")
	}
	return user, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, e
	}
	return vv, nil
}
