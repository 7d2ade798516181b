// Package valuation は購読のROIスコアリングと健全性分類を提供する。
// すべての関数は純粋関数であり、同じ入力に対して常に同じ結果を返す。
package valuation

// Category はサービスカテゴリ。
// 未知のカテゴリ名はCategoryOtherに縮退し、スコアリングを失敗させない。
type Category int

const (
	// CategoryOther は未分類および未知のカテゴリ。デフォルト値を持つ。
	CategoryOther Category = iota
	CategoryProductivity
	CategoryDevelopment
	CategoryBusiness
	CategoryDesign
	CategoryAITools
	CategoryCloudStorage
	CategorySecurity
	CategoryFinance
	CategoryEducation
	CategoryCommunication
	CategoryHealthFitness
	CategoryNews
	CategoryMusic
	CategoryStreaming
	CategoryGaming
)

// Profile はカテゴリごとの定数。
type Profile struct {
	ValueMultiplier float64 // 価値倍率（0.85〜1.4）
	TypicalCost     float64 // 一般的な月額（USD）
	HighCost        float64 // 高額とみなす月額（USD）
	LockInFactor    float64 // 乗り換えの難しさ（0〜1）
}

type categoryEntry struct {
	name    string
	profile Profile
}

// defaultProfile は未知カテゴリに適用される値。
var defaultProfile = Profile{ValueMultiplier: 1.0, TypicalCost: 20, HighCost: 60, LockInFactor: 0.6}

var categories = map[Category]categoryEntry{
	CategoryOther:         {"Other", defaultProfile},
	CategoryProductivity:  {"Productivity", Profile{1.3, 15, 40, 0.7}},
	CategoryDevelopment:   {"Development", Profile{1.4, 25, 100, 0.8}},
	CategoryBusiness:      {"Business", Profile{1.35, 30, 150, 0.8}},
	CategoryDesign:        {"Design", Profile{1.25, 20, 60, 0.7}},
	CategoryAITools:       {"AI Tools", Profile{1.3, 20, 50, 0.5}},
	CategoryCloudStorage:  {"Cloud Storage", Profile{1.2, 10, 30, 0.85}},
	CategorySecurity:      {"Security", Profile{1.2, 8, 25, 0.6}},
	CategoryFinance:       {"Finance", Profile{1.15, 10, 40, 0.75}},
	CategoryEducation:     {"Education", Profile{1.1, 15, 50, 0.4}},
	CategoryCommunication: {"Communication", Profile{1.1, 10, 30, 0.7}},
	CategoryHealthFitness: {"Health & Fitness", Profile{1.0, 15, 50, 0.3}},
	CategoryNews:          {"News", Profile{0.95, 10, 25, 0.3}},
	CategoryMusic:         {"Music", Profile{0.95, 11, 17, 0.5}},
	CategoryStreaming:     {"Streaming", Profile{0.9, 15, 25, 0.2}},
	CategoryGaming:        {"Gaming", Profile{0.85, 15, 30, 0.4}},
}

var categoriesByName = func() map[string]Category {
	m := make(map[string]Category, len(categories))
	for c, e := range categories {
		m[e.name] = c
	}
	return m
}()

// ParseCategory はカテゴリ名をCategoryに変換する。
// 完全一致のみ。見つからない場合はCategoryOtherを返す。
func ParseCategory(name string) Category {
	if c, ok := categoriesByName[name]; ok {
		return c
	}
	return CategoryOther
}

// String は表示用のカテゴリ名を返す。
func (c Category) String() string {
	if e, ok := categories[c]; ok {
		return e.name
	}
	return categories[CategoryOther].name
}

// Profile はカテゴリの定数を返す。
func (c Category) Profile() Profile {
	if e, ok := categories[c]; ok {
		return e.profile
	}
	return defaultProfile
}

// CategoryNames は既知のカテゴリ名の一覧を返す。UIの選択肢用。
func CategoryNames() []string {
	names := make([]string, 0, len(categories))
	for c := CategoryOther; c <= CategoryGaming; c++ {
		names = append(names, c.String())
	}
	return names
}

const (
	primaryWeight   = 0.7
	secondaryWeight = 0.3
)

// Blend は主カテゴリと副カテゴリの定数を合成する。
// 副カテゴリがない場合は主カテゴリの値をそのまま返す。
// ある場合は全属性を primary*0.7 + secondary*0.3 で合成する。
func Blend(primary Category, secondary *Category) Profile {
	p := primary.Profile()
	if secondary == nil {
		return p
	}
	s := secondary.Profile()
	return Profile{
		ValueMultiplier: p.ValueMultiplier*primaryWeight + s.ValueMultiplier*secondaryWeight,
		TypicalCost:     p.TypicalCost*primaryWeight + s.TypicalCost*secondaryWeight,
		HighCost:        p.HighCost*primaryWeight + s.HighCost*secondaryWeight,
		LockInFactor:    p.LockInFactor*primaryWeight + s.LockInFactor*secondaryWeight,
	}
}

// BlendNames はカテゴリ名から合成済みの定数を返す。
// secondaryが空文字列の場合は副カテゴリなしとして扱う。
func BlendNames(primary string, secondary *string) Profile {
	if secondary == nil || *secondary == "" {
		return Blend(ParseCategory(primary), nil)
	}
	sc := ParseCategory(*secondary)
	return Blend(ParseCategory(primary), &sc)
}
