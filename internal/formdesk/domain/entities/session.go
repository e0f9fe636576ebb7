package entities

import (
	"slices"
	"time"
)

// FetchStatus состояние загрузки списка записей.
type FetchStatus string

// Состояния загрузки.
const (
	FetchIdle    FetchStatus = "idle"
	FetchLoading FetchStatus = "loading"
	FetchReady   FetchStatus = "ready"
	FetchFailed  FetchStatus = "failed"
)

// Session состояние одного посетителя: форма отправки и браузер записей.
type Session struct {
	ID      string       `json:"id"`
	Form    FormState    `json:"form"`
	Browser BrowserState `json:"browser"`
}

// FormState состояние формы отправки.
type FormState struct {
	// Token выдается при отрисовке формы и погашается при отправке.
	Token string `json:"token"`
}

// BrowserState кэш записей и текущий черновик.
type BrowserState struct {
	Status  FetchStatus     `json:"status"`
	Error   string          `json:"error,omitempty"`
	Records []*StoredRecord `json:"records"`
	// LoadingSince момент перехода в loading.
	LoadingSince time.Time `json:"loading_since"`

	Editing   *Draft `json:"editing,omitempty"`
	EditError string `json:"edit_error,omitempty"`

	// Поколения запросов: результат применяется, только если поколение не сменилось.
	FetchGeneration uint64 `json:"fetch_generation"`
	EditGeneration  uint64 `json:"edit_generation"`
}

// NewSession создает пустую сессию.
func NewSession(id string) *Session {
	return &Session{
		ID:      id,
		Browser: BrowserState{Status: FetchIdle},
	}
}

// Reset возвращает браузер в исходное состояние, чтобы следующая отрисовка загрузила список заново.
// Поколения продолжают расти, поэтому незавершенные запросы становятся устаревшими.
func (b *BrowserState) Reset() {
	b.Status = FetchIdle
	b.Error = ""
	b.Records = nil
	b.LoadingSince = time.Time{}
	b.Editing = nil
	b.EditError = ""
	b.FetchGeneration++
	b.EditGeneration++
}

// NeedsFetch сообщает, нужно ли загружать список. Загрузка, не завершившаяся за timeout,
// считается брошенной: ее результат уже не будет записан в сессию.
func (b *BrowserState) NeedsFetch(now time.Time, timeout time.Duration) bool {
	switch b.Status {
	case FetchIdle, "":
		return true
	case FetchLoading:
		return timeout > 0 && !now.Before(b.LoadingSince.Add(timeout))
	default:
		return false
	}
}

// Find возвращает запись из кэша по id.
func (b *BrowserState) Find(id int64) (*StoredRecord, bool) {
	i := slices.IndexFunc(b.Records, func(r *StoredRecord) bool { return r.ID == id })
	if i < 0 {
		return nil, false
	}
	return b.Records[i], true
}

// Merge заменяет запись в кэше результатом наложения черновика. Порядок записей сохраняется.
func (b *BrowserState) Merge(d *Draft) bool {
	for i, r := range b.Records {
		if r.ID == d.ID {
			b.Records[i] = &StoredRecord{ID: r.ID, Record: r.Record.Apply(d.Fields)}
			return true
		}
	}
	return false
}
