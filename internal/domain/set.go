package domain

import (
	"encoding/json"
	"sort"
)

// StringSet 是字符串集合，黑名单与举报人集合都用它。
// 序列化为排好序的 JSON 数组，输出稳定便于断言。
type StringSet map[string]struct{}

// NewStringSet 创建集合，可带初始元素。
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s StringSet) Add(value string)      { s[value] = struct{}{} }
func (s StringSet) Remove(value string)   { delete(s, value) }
func (s StringSet) Has(value string) bool { _, ok := s[value]; return ok }
func (s StringSet) Len() int              { return len(s) }

// Values 返回排序后的元素切片。
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON 输出排序后的数组。
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON 从数组恢复集合。
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
