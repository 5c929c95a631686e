package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/internal/usecase"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/notify"
	"go-panel-backend/pkg/security/antivirus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func price(v float64) *float64 { return &v }

type stubScanner struct {
	threat string
	err    error
}

func (s stubScanner) Scan(context.Context, string, []byte) (antivirus.Verdict, error) {
	if s.threat != "" {
		return antivirus.Verdict{Scanner: "stub", Threat: s.threat}, antivirus.ErrInfected
	}
	return antivirus.Verdict{Scanner: "stub"}, s.err
}

func (stubScanner) Ping(context.Context) error { return nil }

func TestContactUsecase(t *testing.T) {
	ctx := context.Background()

	t.Run("blank fields never reach the store", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewContactUsecase(store, notify.NewHub(), nil)

		_, err := uc.Create(ctx, domain.ContactInput{Nombre: "Ana", Apellidos: "  ", Correo: "a@x.com", Telefono: "1"})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		assert.Equal(t, "Por favor completa todos los campos", apperror.UserMessage(err))
		store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("create stores trimmed fields and the creation date", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewContactUsecase(store, notify.NewHub(), nil)
		dateRe := regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)

		store.On("Add", ctx, domain.CollectionContacts, mock.MatchedBy(func(f domain.Fields) bool {
			fecha, _ := f["fecha"].(string)
			return f["nombre"] == "Ana" && f["apellidos"] == "Pérez" && f["correo"] == "a@x.com" &&
				f["telefono"] == "555" && dateRe.MatchString(fecha)
		})).Return("c1", nil)

		c, err := uc.Create(ctx, domain.ContactInput{Nombre: " Ana ", Apellidos: "Pérez", Correo: "a@x.com", Telefono: "555"})
		require.NoError(t, err)
		assert.Equal(t, "c1", c.ID)
		assert.Equal(t, "Ana", c.Nombre)
		store.AssertExpectations(t)
	})

	t.Run("update of a deleted record is a persistence error", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewContactUsecase(store, notify.NewHub(), nil)
		store.On("Update", ctx, domain.CollectionContacts, "gone", mock.Anything).Return(domain.ErrNotFound)

		err := uc.Update(ctx, "gone", domain.ContactInput{Nombre: "A", Apellidos: "B", Correo: "c", Telefono: "d"})
		assert.True(t, apperror.IsKind(err, apperror.KindPersistence))
		assert.Equal(t, apperror.MsgDocumentNotFound, apperror.UserMessage(err))
	})

	t.Run("list keeps natural order", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewContactUsecase(store, notify.NewHub(), nil)
		store.On("List", ctx, domain.CollectionContacts, domain.OrderBy{}).Return([]domain.Document{
			{ID: "c1", Fields: domain.Fields{"nombre": "Ana", "fecha": "1/2/2026"}},
			{ID: "c2", Fields: domain.Fields{"nombre": "Beto"}},
		}, nil)

		items, err := uc.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "c1", items[0].ID)
		assert.Equal(t, "1/2/2026", items[0].Fecha)
		assert.Equal(t, "Beto", items[1].Nombre)
	})
}

func TestSubscriptionSnapshots(t *testing.T) {
	ctx := context.Background()
	store := new(MockDocumentStore)
	hub := notify.NewHub()
	uc := usecase.NewContactUsecase(store, hub, nil)

	store.On("List", mock.Anything, domain.CollectionContacts, domain.OrderBy{}).
		Return([]domain.Document{{ID: "c1", Fields: domain.Fields{"nombre": "Ana"}}}, nil).Once()
	store.On("List", mock.Anything, domain.CollectionContacts, domain.OrderBy{}).
		Return([]domain.Document{
			{ID: "c1", Fields: domain.Fields{"nombre": "Ana"}},
			{ID: "c2", Fields: domain.Fields{"nombre": "Beto"}},
		}, nil)

	sub := uc.Subscribe(ctx)
	first := <-sub.Snapshots()
	require.Len(t, first, 1)

	require.Eventually(t, func() bool {
		return hub.Subscribers(domain.CollectionTopic(domain.CollectionContacts)) == 1
	}, time.Second, 5*time.Millisecond)
	hub.Publish(ctx, domain.CollectionTopic(domain.CollectionContacts), "changed")

	second := <-sub.Snapshots()
	assert.Len(t, second, 2)

	sub.Unsubscribe()
	sub.Unsubscribe()
	_, open := <-sub.Snapshots()
	assert.False(t, open)
	assert.Eventually(t, func() bool {
		return hub.Subscribers(domain.CollectionTopic(domain.CollectionContacts)) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPostUsecase(t *testing.T) {
	ctx := context.Background()

	t.Run("create asks for a server timestamp and no edit time", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		store.On("Add", ctx, domain.CollectionPosts, domain.Fields{
			"mensaje":   "Hola",
			"createdAt": domain.ServerTimestamp,
			"updatedAt": nil,
		}).Return("p1", nil)
		store.On("Get", ctx, domain.CollectionPosts, "p1").Return(&domain.Document{ID: "p1", Fields: domain.Fields{
			"mensaje":   "Hola",
			"createdAt": created.Format(domain.TimestampLayout),
			"updatedAt": nil,
		}}, nil)

		p, err := uc.Create(ctx, domain.PostInput{Mensaje: "  Hola "})
		require.NoError(t, err)
		require.NotNil(t, p.CreatedAt)
		assert.True(t, created.Equal(*p.CreatedAt))
		assert.Nil(t, p.UpdatedAt)
	})

	t.Run("empty message", func(t *testing.T) {
		uc := usecase.NewPostUsecase(new(MockDocumentStore), notify.NewHub(), nil)
		_, err := uc.Create(ctx, domain.PostInput{Mensaje: "   "})
		assert.Equal(t, "Por favor escribe un mensaje", apperror.UserMessage(err))
	})

	t.Run("update stamps the edit time", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		store.On("Update", ctx, domain.CollectionPosts, "p1", domain.Fields{
			"mensaje":   "Editado",
			"updatedAt": domain.ServerTimestamp,
		}).Return(nil)

		require.NoError(t, uc.Update(ctx, "p1", domain.PostInput{Mensaje: "Editado"}))
		store.AssertExpectations(t)
	})

	t.Run("lists newest first", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		store.On("List", ctx, domain.CollectionPosts, domain.OrderBy{Field: "createdAt", Desc: true}).Return([]domain.Document{}, nil)

		items, err := uc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("delete failure is reported", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		store.On("Delete", ctx, domain.CollectionPosts, "p1").Return(errors.New("db down"))

		err := uc.Delete(ctx, "p1")
		assert.True(t, apperror.IsKind(err, apperror.KindPersistence))
	})

	t.Run("export csv", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		store.On("List", ctx, domain.CollectionPosts, mock.Anything).Return([]domain.Document{
			{ID: "p1", Fields: domain.Fields{"mensaje": "uno, dos"}},
		}, nil)

		data, filename, err := uc.Export(ctx, "csv")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "post_"))
		assert.True(t, strings.HasSuffix(filename, ".csv"))
		assert.Equal(t, "mensaje,createdAt,updatedAt\n\"uno, dos\",,\n", string(data))
	})

	t.Run("export xlsx", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		store.On("List", ctx, domain.CollectionPosts, mock.Anything).Return([]domain.Document{}, nil)

		data, filename, err := uc.Export(ctx, "")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".xlsx"))
		assert.Equal(t, "PK", string(data[:2]))
	})

	t.Run("exported text never evaluates as a formula", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		store.On("List", ctx, domain.CollectionPosts, mock.Anything).Return([]domain.Document{
			{ID: "p1", Fields: domain.Fields{"mensaje": `=HYPERLINK("http://evil.example","x")`}},
			{ID: "p2", Fields: domain.Fields{"mensaje": "@SUM(A1)"}},
		}, nil)

		csvData, _, err := uc.Export(ctx, "csv")
		require.NoError(t, err)
		assert.Contains(t, string(csvData), `"'=HYPERLINK(""http://evil.example"",""x"")"`)
		assert.Contains(t, string(csvData), "'@SUM(A1)")

		xlsxData, _, err := uc.Export(ctx, "xlsx")
		require.NoError(t, err)
		book, err := excelize.OpenReader(bytes.NewReader(xlsxData))
		require.NoError(t, err)
		defer book.Close()

		value, err := book.GetCellValue("post", "A2")
		require.NoError(t, err)
		assert.Equal(t, `'=HYPERLINK("http://evil.example","x")`, value)
		formula, err := book.GetCellFormula("post", "A2")
		require.NoError(t, err)
		assert.Empty(t, formula)
		header, err := book.GetCellValue("post", "A1")
		require.NoError(t, err)
		assert.Equal(t, "MENSAJE", header)
	})

	t.Run("unknown export format", func(t *testing.T) {
		store := new(MockDocumentStore)
		uc := usecase.NewPostUsecase(store, notify.NewHub(), nil)
		store.On("List", ctx, domain.CollectionPosts, mock.Anything).Return([]domain.Document{}, nil)

		_, _, err := uc.Export(ctx, "pdf")
		assert.Error(t, err)
	})
}

func TestProductUsecase(t *testing.T) {
	ctx := context.Background()
	input := domain.ProductInput{Titulo: "Silla", Descripcion: "De madera", Categoria: "Hogar", Precio: price(49.9)}

	newUC := func() (domain.ProductUsecase, *MockDocumentStore, *MockBlobStore) {
		store := new(MockDocumentStore)
		blobs := new(MockBlobStore)
		images := usecase.NewImageUploader(blobs, usecase.ImageConfig{MaxBytes: 1 << 20}, nil)
		return usecase.NewProductUsecase(store, notify.NewHub(), images, nil), store, blobs
	}

	t.Run("image is required on create", func(t *testing.T) {
		uc, store, blobs := newUC()
		_, err := uc.Create(ctx, input, nil)
		assert.Equal(t, "Por favor, completa todos los campos y selecciona una imagen.", apperror.UserMessage(err))
		store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
		blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("uploads first then writes a numeric price", func(t *testing.T) {
		uc, store, blobs := newUC()
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		blobs.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "productos/") && strings.HasSuffix(key, "-silla.png")
		}), mock.Anything, "image/png").Return("productos/k", nil)
		blobs.On("PublicURL", ctx, "productos/k").Return("https://cdn/productos/k", nil)
		store.On("Add", ctx, domain.CollectionProducts, domain.Fields{
			"titulo":      "Silla",
			"descripcion": "De madera",
			"categoria":   "Hogar",
			"precio":      49.9,
			"imagenURL":   "https://cdn/productos/k",
			"creadoEn":    domain.ServerTimestamp,
		}).Return("pr1", nil)
		store.On("Get", ctx, domain.CollectionProducts, "pr1").Return(&domain.Document{ID: "pr1", Fields: domain.Fields{
			"titulo": "Silla", "descripcion": "De madera", "categoria": "Hogar", "precio": 49.9,
			"imagenURL": "https://cdn/productos/k", "creadoEn": created.Format(domain.TimestampLayout),
		}}, nil)

		p, err := uc.Create(ctx, input, pngUpload(t, "silla.png"))
		require.NoError(t, err)
		assert.Equal(t, 49.9, p.Precio)
		assert.Equal(t, "https://cdn/productos/k", p.ImagenURL)
		store.AssertExpectations(t)
	})

	t.Run("storage failure writes no record", func(t *testing.T) {
		uc, store, blobs := newUC()
		blobs.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

		_, err := uc.Create(ctx, input, pngUpload(t, "silla.png"))
		assert.True(t, apperror.IsKind(err, apperror.KindStorage))
		store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("scanner rejects infected image before upload", func(t *testing.T) {
		store := new(MockDocumentStore)
		blobs := new(MockBlobStore)
		images := usecase.NewImageUploader(blobs, usecase.ImageConfig{MaxBytes: 1 << 20, Scanner: stubScanner{threat: "Eicar-Signature"}}, nil)
		uc := usecase.NewProductUsecase(store, notify.NewHub(), images, nil)

		_, err := uc.Create(ctx, input, pngUpload(t, "silla.png"))
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("scanner outage fails closed", func(t *testing.T) {
		store := new(MockDocumentStore)
		blobs := new(MockBlobStore)
		images := usecase.NewImageUploader(blobs, usecase.ImageConfig{MaxBytes: 1 << 20, Scanner: stubScanner{err: errors.New("clamd down")}}, nil)
		uc := usecase.NewProductUsecase(store, notify.NewHub(), images, nil)

		_, err := uc.Create(ctx, input, pngUpload(t, "silla.png"))
		assert.True(t, apperror.IsKind(err, apperror.KindStorage))
		blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("update without image keeps imagenURL", func(t *testing.T) {
		uc, store, blobs := newUC()
		store.On("Update", ctx, domain.CollectionProducts, "pr1", mock.MatchedBy(func(f domain.Fields) bool {
			_, hasImage := f["imagenURL"]
			return !hasImage && f["precio"] == 49.9
		})).Return(nil)

		require.NoError(t, uc.Update(ctx, "pr1", input, nil))
		blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("update with image replaces imagenURL", func(t *testing.T) {
		uc, store, blobs := newUC()
		blobs.On("Put", ctx, mock.Anything, mock.Anything, "image/png").Return("productos/n", nil)
		blobs.On("PublicURL", ctx, "productos/n").Return("https://cdn/productos/n", nil)
		store.On("Update", ctx, domain.CollectionProducts, "pr1", mock.MatchedBy(func(f domain.Fields) bool {
			return f["imagenURL"] == "https://cdn/productos/n"
		})).Return(nil)

		require.NoError(t, uc.Update(ctx, "pr1", input, pngUpload(t, "nueva.png")))
		store.AssertExpectations(t)
	})

	t.Run("update needs every field", func(t *testing.T) {
		uc, _, _ := newUC()
		missing := input
		missing.Precio = nil

		err := uc.Update(ctx, "pr1", missing, nil)
		assert.Equal(t, "Completa todos los campos antes de guardar.", apperror.UserMessage(err))
	})
}
