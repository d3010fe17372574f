package recipe

import (
	"context"
	"time"

	"nutritrack/internal/metrics"
	"nutritrack/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store 食譜來源
type Store interface {
	// LoadRecipes 載入指定範圍的食譜；private 範圍需帶 userID，找不到時回傳空切片
	LoadRecipes(ctx context.Context, scope Scope, userID string) ([]Recipe, error)
}

// SearchRequest 搜尋請求：條件加上要搜尋的範圍
type SearchRequest struct {
	SearchFilters
	IncludeGeneral *bool `json:"include_general,omitempty"`
	IncludePublic  bool  `json:"include_public"`
	IncludePrivate bool  `json:"include_private"`
}

// Scopes 依旗標決定搜尋範圍，順序固定為 general、public、private；未指定 general 時預設包含
func (r SearchRequest) Scopes() []Scope {
	scopes := make([]Scope, 0, 3)
	if r.IncludeGeneral == nil || *r.IncludeGeneral {
		scopes = append(scopes, ScopeGeneral)
	}
	if r.IncludePublic {
		scopes = append(scopes, ScopePublic)
	}
	if r.IncludePrivate {
		scopes = append(scopes, ScopePrivate)
	}
	return scopes
}

// AppliedFilters 回應中回顯的條件
type AppliedFilters struct {
	SearchFilters
	Scopes []Scope `json:"scopes"`
}

// SearchResponse 搜尋結果
type SearchResponse struct {
	ExactMatches      []ScoredRecipe `json:"exactMatches"`
	ExactMatchesCount int            `json:"exactMatchesCount"`
	Suggestions       []ScoredRecipe `json:"suggestions"`
	SuggestionsCount  int            `json:"suggestionsCount"`
	FiltersApplied    AppliedFilters `json:"filtersApplied"`
}

// SearchService 食譜搜尋服務
type SearchService struct {
	store          Store
	threshold      float64
	maxSuggestions int
}

// SearchOption 搜尋服務選項
type SearchOption func(*SearchService)

// WithSuggestionThreshold 設定建議門檻
func WithSuggestionThreshold(threshold float64) SearchOption {
	return func(s *SearchService) {
		s.threshold = threshold
	}
}

// WithMaxSuggestions 設定建議數量上限
func WithMaxSuggestions(n int) SearchOption {
	return func(s *SearchService) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSearchService 創建搜尋服務
func NewSearchService(store Store, opts ...SearchOption) *SearchService {
	s := &SearchService{
		store:          store,
		threshold:      DefaultSuggestionThreshold,
		maxSuggestions: DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search 併發載入各範圍語料後評分並分組
func (s *SearchService) Search(ctx context.Context, req SearchRequest, userID string) (*SearchResponse, error) {
	scopes := req.Scopes()
	if req.IncludePrivate && userID == "" {
		return nil, common.ErrUnauthorized
	}

	start := time.Now()
	corpora := make([][]Recipe, len(scopes))
	g, gctx := errgroup.WithContext(ctx)
	for i, scope := range scopes {
		i, scope := i, scope
		g.Go(func() error {
			recipes, err := s.store.LoadRecipes(gctx, scope, userID)
			if err != nil {
				return err
			}
			// 快取中的切片可能被其他請求共用，複製後再標記範圍
			scoped := make([]Recipe, len(recipes))
			copy(scoped, recipes)
			for j := range scoped {
				scoped[j].Scope = scope
			}
			corpora[i] = scoped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		common.LogError("載入食譜失敗", zap.Error(err))
		return nil, err
	}

	var corpus []Recipe
	for _, c := range corpora {
		corpus = append(corpus, c...)
	}

	exact, suggestions := Partition(ScoreAll(corpus, req.SearchFilters), s.threshold, s.maxSuggestions)
	metrics.RecordSearch(len(exact), len(suggestions))

	common.LogInfo("食譜搜尋完成",
		zap.Int("corpus_size", len(corpus)),
		zap.Int("exact_matches", len(exact)),
		zap.Int("suggestions", len(suggestions)),
		zap.Duration("duration", time.Since(start)),
	)

	return &SearchResponse{
		ExactMatches:      exact,
		ExactMatchesCount: len(exact),
		Suggestions:       suggestions,
		SuggestionsCount:  len(suggestions),
		FiltersApplied: AppliedFilters{
			SearchFilters: req.SearchFilters,
			Scopes:        scopes,
		},
	}, nil
}
