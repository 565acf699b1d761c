package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pracsphere/backend/internal/models"
	"pracsphere/backend/internal/services"
	"pracsphere/backend/internal/storage"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeObjectStore struct {
	objects map[string][]byte
	fail    bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if f.fail {
		return errors.New("bucket unavailable")
	}
	f.objects[name] = data
	return nil
}

func (f *fakeObjectStore) Get(ctx context.Context, name string) ([]byte, string, error) {
	data, ok := f.objects[name]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return data, "application/octet-stream", nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, name string) error {
	delete(f.objects, name)
	return nil
}

func setupTaskService(t *testing.T) (*gorm.DB, *services.TaskServiceImpl, *fakeObjectStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	store := newFakeObjectStore()
	pipeline := storage.NewImagePipeline(store, "pracsphere-tasks", "http://localhost:8080", nil)

	return db, services.NewTaskService(pipeline), store
}

func mustOwner(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.Must(uuid.NewV4())
}

func dueIn(days int) time.Time {
	return time.Now().AddDate(0, 0, days)
}

func TestCreateAndListScopedToOwner(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	alice := mustOwner(t)
	bob := mustOwner(t)

	id, err := svc.Create(ctx, db, alice, services.CreateTaskInput{
		Title:       "Buy milk",
		Description: "2% milk",
		DueDate:     dueIn(0),
		Priority:    models.PriorityHigh,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	_, err = svc.Create(ctx, db, bob, services.CreateTaskInput{
		Title:       "Walk dog",
		Description: "Evening walk",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	aliceTasks, err := svc.List(ctx, db, alice)
	require.NoError(t, err)
	require.Len(t, aliceTasks, 1)
	assert.Equal(t, "Buy milk", aliceTasks[0].Title)
	assert.Equal(t, models.StatusPending, aliceTasks[0].Status)
	assert.Equal(t, models.PriorityHigh, aliceTasks[0].Priority)

	bobTasks, err := svc.List(ctx, db, bob)
	require.NoError(t, err)
	require.Len(t, bobTasks, 1)
	assert.NotEqual(t, aliceTasks[0].ID, bobTasks[0].ID)
}

func TestListSortedByDueDateAscending(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)

	for _, days := range []int{5, 1, 3} {
		_, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
			Title:       fmt.Sprintf("task due in %d", days),
			Description: "x",
			DueDate:     dueIn(days),
		})
		require.NoError(t, err)
	}

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i := 1; i < len(tasks); i++ {
		assert.False(t, tasks[i].DueDate.Before(tasks[i-1].DueDate))
	}
}

func TestCreateDefaultsPriorityToMedium(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)

	_, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "No priority given",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.PriorityMedium, tasks[0].Priority)
}

func TestCreateValidation(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)

	cases := []services.CreateTaskInput{
		{Description: "x", DueDate: dueIn(1)},
		{Title: "x", DueDate: dueIn(1)},
		{Title: "x", Description: "x"},
		{Title: "x", Description: "x", DueDate: dueIn(1), Priority: "urgent"},
	}
	for _, input := range cases {
		_, err := svc.Create(ctx, db, owner, input)
		assert.ErrorIs(t, err, services.ErrValidation)
	}

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateRequiresIdentity(t *testing.T) {
	db, svc, _ := setupTaskService(t)

	_, err := svc.Create(context.Background(), db, uuid.Nil, services.CreateTaskInput{
		Title:       "x",
		Description: "x",
		DueDate:     dueIn(1),
	})
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	_, err = svc.List(context.Background(), db, uuid.Nil)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

func TestCreateFailedUploadPersistsNothing(t *testing.T) {
	db, svc, store := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)
	store.fail = true

	_, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "With attachment",
		Description: "x",
		DueDate:     dueIn(1),
		Images: []storage.File{
			{Name: "a.png", ContentType: "image/png", Data: []byte("bytes")},
		},
	})
	require.ErrorIs(t, err, services.ErrUpstream)

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	assert.Empty(t, tasks, "create must be all-or-nothing")
}

func TestCreateStoresImageURLsInOrder(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)

	_, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "With attachments",
		Description: "x",
		DueDate:     dueIn(1),
		Images: []storage.File{
			{Name: "a.png", ContentType: "image/png", Data: []byte("first")},
			{Name: "b.png", ContentType: "image/png", Data: []byte("second")},
		},
	})
	require.NoError(t, err)

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].Images, 2)
	assert.Contains(t, tasks[0].Images[0], "/media/pracsphere-tasks/")
}

func TestUpdateReplacesMutableFieldsOnly(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)

	id, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "Original",
		Description: "Original description",
		DueDate:     dueIn(1),
		Images: []storage.File{
			{Name: "a.png", ContentType: "image/png", Data: []byte("bytes")},
		},
	})
	require.NoError(t, err)

	err = svc.Update(ctx, db, owner, id, services.UpdateTaskInput{
		Title:       "Updated",
		Description: "Updated description",
		DueDate:     dueIn(3),
		Status:      models.StatusCompleted,
		Priority:    models.PriorityHigh,
	})
	require.NoError(t, err)

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Updated", tasks[0].Title)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	assert.Len(t, tasks[0].Images, 1, "update must not touch images")
}

func TestUpdateForeignTaskLooksLikeNotFound(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	alice := mustOwner(t)
	bob := mustOwner(t)

	id, err := svc.Create(ctx, db, alice, services.CreateTaskInput{
		Title:       "Alice's task",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	input := services.UpdateTaskInput{
		Title:       "Hijacked",
		Description: "x",
		DueDate:     dueIn(1),
		Status:      models.StatusPending,
		Priority:    models.PriorityLow,
	}

	err = svc.Update(ctx, db, bob, id, input)
	assert.ErrorIs(t, err, services.ErrNotFound)

	missing := uuid.Must(uuid.NewV4())
	err = svc.Update(ctx, db, bob, missing, input)
	assert.ErrorIs(t, err, services.ErrNotFound, "foreign and missing ids must be indistinguishable")

	tasks, err := svc.List(ctx, db, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice's task", tasks[0].Title, "foreign update must not mutate the record")
}

func TestUpdateValidatesAllFields(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)

	id, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "x",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	err = svc.Update(ctx, db, owner, id, services.UpdateTaskInput{
		Title:       "x",
		Description: "x",
		DueDate:     dueIn(1),
		Status:      "archived",
		Priority:    models.PriorityLow,
	})
	assert.ErrorIs(t, err, services.ErrValidation)

	err = svc.Update(ctx, db, owner, id, services.UpdateTaskInput{
		Description: "x",
		DueDate:     dueIn(1),
		Status:      models.StatusPending,
		Priority:    models.PriorityLow,
	})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestPatchStatusIsIdempotent(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	owner := mustOwner(t)

	id, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "x",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	require.NoError(t, svc.PatchStatus(ctx, db, owner, id, models.StatusCompleted))
	require.NoError(t, svc.PatchStatus(ctx, db, owner, id, models.StatusCompleted))

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)
}

func TestPatchStatusForeignTaskNotFound(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	alice := mustOwner(t)
	bob := mustOwner(t)

	id, err := svc.Create(ctx, db, alice, services.CreateTaskInput{
		Title:       "x",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	err = svc.PatchStatus(ctx, db, bob, id, models.StatusCompleted)
	assert.ErrorIs(t, err, services.ErrNotFound)

	tasks, err := svc.List(ctx, db, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tasks[0].Status)
}

func TestDeleteIsIdempotentAndOwnerScoped(t *testing.T) {
	db, svc, _ := setupTaskService(t)
	ctx := context.Background()
	alice := mustOwner(t)
	bob := mustOwner(t)

	id, err := svc.Create(ctx, db, alice, services.CreateTaskInput{
		Title:       "x",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	// Bob deleting Alice's task is a silent no-op.
	require.NoError(t, svc.Delete(ctx, db, bob, id))
	tasks, err := svc.List(ctx, db, alice)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, svc.Delete(ctx, db, alice, id))
	require.NoError(t, svc.Delete(ctx, db, alice, id))

	tasks, err = svc.List(ctx, db, alice)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
