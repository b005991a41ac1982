package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// The array-valued fields of Blog and Comment (likes, bookmarks, replies,
// flaggedBy, tags) are stored as jsonb columns so that a document's sets ride
// along in the same row and are mutated in the same write as their cached
// counts.

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

// UserRef 集合条目 - 某个用户在某一时刻的动作（点赞/收藏）
type UserRef struct {
	UserID    uint      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRefSet 用户集合（点赞/收藏），按加入时间有序，无重复
type UserRefSet []UserRef

func (s UserRefSet) Value() (driver.Value, error) {
	if s == nil {
		s = UserRefSet{}
	}
	return json.Marshal(s)
}

func (s *UserRefSet) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// Contains 检查用户是否在集合中
func (s UserRefSet) Contains(userID uint) bool {
	for _, ref := range s {
		if ref.UserID == userID {
			return true
		}
	}
	return false
}

// Add 加入集合，已存在则不变（幂等）
func (s UserRefSet) Add(userID uint) UserRefSet {
	if s.Contains(userID) {
		return s
	}
	return append(s, UserRef{UserID: userID, CreatedAt: time.Now()})
}

// Remove 从集合中移除用户
func (s UserRefSet) Remove(userID uint) UserRefSet {
	out := s[:0]
	for _, ref := range s {
		if ref.UserID != userID {
			out = append(out, ref)
		}
	}
	return out
}

// IDSet 有序且无重复的 ID 列表（父评论的 replies 字段）
type IDSet []uint

func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		s = IDSet{}
	}
	return json.Marshal(s)
}

func (s *IDSet) Scan(src interface{}) error {
	return scanJSON(src, s)
}

func (s IDSet) Contains(id uint) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add 追加 ID，已存在则不变（幂等，保持插入顺序）
func (s IDSet) Add(id uint) IDSet {
	if s.Contains(id) {
		return s
	}
	return append(s, id)
}

func (s IDSet) Remove(id uint) IDSet {
	out := s[:0]
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Flag 举报条目
type Flag struct {
	UserID    uint      `json:"user"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// FlagSet 举报集合，每个用户至多一条
type FlagSet []Flag

func (s FlagSet) Value() (driver.Value, error) {
	if s == nil {
		s = FlagSet{}
	}
	return json.Marshal(s)
}

func (s *FlagSet) Scan(src interface{}) error {
	return scanJSON(src, s)
}

func (s FlagSet) Contains(userID uint) bool {
	for _, f := range s {
		if f.UserID == userID {
			return true
		}
	}
	return false
}

// StringList 字符串列表（博客标签）
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(src interface{}) error {
	return scanJSON(src, s)
}
