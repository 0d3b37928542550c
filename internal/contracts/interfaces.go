package contracts

import (
	"context"
	"time"
)

// PriceSource supplies daily snapshot prices (opening price at 00:00 UTC)
// ⭐ SSOT: 가격 데이터 수집 인터페이스
// 반환 패널은 요청한 자산 순서의 컬럼을 가지며, 상류 데이터가 없는 날짜는 빠질 수 있다.
type PriceSource interface {
	GetDailyOpenPrices(ctx context.Context, assets []Asset, start, end time.Time) (PricePanel, error)
}

// PriceCache persists downloaded price fragments keyed by retrieval date
// ⭐ SSOT: 가격 캐시 인터페이스 (프로세스 시작 시 한 번 생성해서 주입)
type PriceCache interface {
	// SaveFragment stores one downloaded panel under its retrieval date
	SaveFragment(ctx context.Context, retrievedOn time.Time, panel PricePanel) error

	// LoadAll returns the merged, cleaned union of all fragments
	LoadAll(ctx context.Context) (PricePanel, error)

	// LastDate returns the latest cached price date
	LastDate(ctx context.Context) (time.Time, bool, error)

	// Fragments lists stored fragments
	Fragments(ctx context.Context) ([]FragmentInfo, error)
}

// FragmentInfo describes one cached fragment
type FragmentInfo struct {
	RetrievedOn time.Time `json:"retrieved_on"`
	FirstDate   time.Time `json:"first_date"`
	LastDate    time.Time `json:"last_date"`
	Rows        int       `json:"rows"`
	Assets      []string  `json:"assets"`
}
