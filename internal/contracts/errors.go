package contracts

import "errors"

// Domain errors
// ⭐ SSOT: 포트폴리오 분석 에러 분류는 여기서만 정의, 호출자는 errors.Is 로 판별
var (
	// ErrInsufficientData 공분산/변동성을 정의할 수 없는 패널 (행 2개 미만). 재시도 불가.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDimensionMismatch 가중치 길이와 자산 컬럼 수 불일치 (호출자 프로그래밍 오류)
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidDateRange 사용자 분석 기간이 순서/최소 구간 제약을 위반
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrDegenerateWeights 가중치 샘플러가 재시도 한도 내에 합이 0이 아닌 표본을 만들지 못함
	ErrDegenerateWeights = errors.New("degenerate weights")

	// ErrInvalidTrials 시행 횟수 < 1
	ErrInvalidTrials = errors.New("invalid number of trials")

	// ErrInvalidFraction 최소 유지 비율이 (0, 1] 범위 밖
	ErrInvalidFraction = errors.New("invalid minimum fraction kept")
)
