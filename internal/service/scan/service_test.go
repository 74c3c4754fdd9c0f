package scan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type stubScanRepo struct {
	scans map[uuid.UUID]*model.Scan
}

func (r *stubScanRepo) Create(_ context.Context, s *model.Scan) error {
	r.scans[s.ID] = s
	return nil
}

func (r *stubScanRepo) Get(_ context.Context, id uuid.UUID) (*model.Scan, error) {
	s, ok := r.scans[id]
	if !ok {
		return nil, errors.NotFound("scan", nil)
	}
	cp := *s
	return &cp, nil
}

func (r *stubScanRepo) Update(_ context.Context, s *model.Scan) error {
	r.scans[s.ID] = s
	return nil
}

func (r *stubScanRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.scans, id)
	return nil
}

func (r *stubScanRepo) List(_ context.Context, _ *model.ScanFilters) ([]*model.Scan, error) {
	return nil, nil
}

type stubCategoryRepo struct {
	categories map[uuid.UUID]*model.ScanCategory
}

func (r *stubCategoryRepo) Create(_ context.Context, c *model.ScanCategory) error {
	r.categories[c.ID] = c
	return nil
}

func (r *stubCategoryRepo) Get(_ context.Context, id uuid.UUID) (*model.ScanCategory, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, errors.NotFound("scan category", nil)
	}
	return c, nil
}

func (r *stubCategoryRepo) Update(_ context.Context, c *model.ScanCategory) error {
	r.categories[c.ID] = c
	return nil
}

func (r *stubCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.categories, id)
	return nil
}

func (r *stubCategoryRepo) List(_ context.Context, _ *model.ListParams) ([]*model.ScanCategory, error) {
	return nil, nil
}

type stubStockRepo struct {
	items map[uuid.UUID]*model.StockItem
}

func (r *stubStockRepo) Create(_ context.Context, item *model.StockItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *stubStockRepo) Get(_ context.Context, id uuid.UUID) (*model.StockItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("stock item", nil)
	}
	return item, nil
}

func (r *stubStockRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*model.StockItem, error) {
	var out []*model.StockItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *stubStockRepo) Update(_ context.Context, item *model.StockItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *stubStockRepo) AdjustQuantity(_ context.Context, _ uuid.UUID, _ int, _ uuid.UUID, _ time.Time) (*model.StockItem, error) {
	return nil, errors.NotFound("stock item", nil)
}

func (r *stubStockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *stubStockRepo) List(_ context.Context, _ *model.StockFilters) ([]*model.StockItem, error) {
	return nil, nil
}

func (r *stubStockRepo) ListLow(_ context.Context) ([]*model.StockItem, error) { return nil, nil }

type fixture struct {
	svc   *Service
	repo  *stubScanRepo
	cats  *stubCategoryRepo
	stock *stubStockRepo
	cat   *model.ScanCategory
	item  *model.StockItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := &stubScanRepo{scans: make(map[uuid.UUID]*model.Scan)}
	cats := &stubCategoryRepo{categories: make(map[uuid.UUID]*model.ScanCategory)}
	stock := &stubStockRepo{items: make(map[uuid.UUID]*model.StockItem)}

	cat := &model.ScanCategory{Base: model.Base{ID: uuid.New()}, Name: "CT", Price: 300, IsActive: true}
	cats.categories[cat.ID] = cat
	item := &model.StockItem{Base: model.Base{ID: uuid.New()}, ItemName: "contrast dye", Quantity: 10, MinQuantity: 2}
	stock.items[item.ID] = item

	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return &fixture{
		svc:   NewService(repo, cats, stock, clk),
		repo:  repo,
		cats:  cats,
		stock: stock,
		cat:   cat,
		item:  item,
	}
}

func (f *fixture) createRequest() *model.CreateScanRequest {
	return &model.CreateScanRequest{
		Name:       "CT abdomen",
		CategoryID: f.cat.ID,
		Price:      300,
		MinPrice:   200,
		MaxPrice:   400,
		Items:      []model.ScanItem{{StockItemID: f.item.ID, Quantity: 2}},
		Duration:   20,
	}
}

func TestCreateScan(t *testing.T) {
	f := newFixture(t)

	scan, err := f.svc.Create(context.Background(), uuid.New(), f.createRequest())
	require.NoError(t, err)
	assert.True(t, scan.IsActive)
	assert.Len(t, f.repo.scans, 1)
}

func TestCreateRejectsPriceOutsideBand(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest()
	req.Price = 450

	_, err := f.svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestCreateRejectsInvertedBand(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest()
	req.MinPrice = 500
	req.MaxPrice = 400
	req.Price = 450

	_, err := f.svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest()
	req.CategoryID = uuid.New()

	_, err := f.svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestCreateRejectsUnknownStockItem(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest()
	req.Items = append(req.Items, model.ScanItem{StockItemID: uuid.New(), Quantity: 1})

	_, err := f.svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest()
	req.Items[0].Quantity = 11

	_, err := f.svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestCreateDoesNotReserveStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), f.createRequest())
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock.items[f.item.ID].Quantity)
}

func TestUpdateRevalidatesBandAndStock(t *testing.T) {
	f := newFixture(t)
	scan, err := f.svc.Create(context.Background(), uuid.New(), f.createRequest())
	require.NoError(t, err)

	badPrice := 199.0
	_, err = f.svc.Update(context.Background(), uuid.New(), scan.ID, &model.UpdateScanRequest{Price: &badPrice})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	// Stock dropped since creation, so bumping the requirement fails.
	f.item.Quantity = 1
	_, err = f.svc.Update(context.Background(), uuid.New(), scan.ID, &model.UpdateScanRequest{
		Items: []model.ScanItem{{StockItemID: f.item.ID, Quantity: 2}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestAvailabilityReport(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	req := f.createRequest()
	scan, err := f.svc.Create(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	// A requirement whose stock item has since disappeared still shows up in
	// the report, as insufficient.
	stored := f.repo.scans[scan.ID]
	stored.Items = append(stored.Items, model.ScanItem{StockItemID: missing, Quantity: 1})

	report, err := f.svc.Availability(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Len(t, report, 2)

	assert.Equal(t, f.item.ID, report[0].StockItemID)
	assert.True(t, report[0].Sufficient)
	assert.Equal(t, 10, report[0].Available)

	assert.Equal(t, missing, report[1].StockItemID)
	assert.False(t, report[1].Sufficient)
	assert.Empty(t, report[1].ItemName)
}
