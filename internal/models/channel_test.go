package models

import (
	"reflect"
	"testing"
)

func TestSplitCommaSet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"空字符串", "", nil},
		{"单个元素", "default", []string{"default"}},
		{"首见顺序去重", "vip,default,vip,svip", []string{"vip", "default", "svip"}},
		{"忽略空白段", " default , ,vip, ", []string{"default", "vip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitCommaSet(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitCommaSet(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestChannel_ModelList(t *testing.T) {
	ch := &Channel{Models: "gpt-4o,claude-3,gpt-4o"}
	want := []string{"gpt-4o", "claude-3"}
	if got := ch.ModelList(); !reflect.DeepEqual(got, want) {
		t.Errorf("ModelList() = %v, want %v", got, want)
	}
}

func TestUser_Deleted(t *testing.T) {
	u := &User{}
	if u.Deleted() {
		t.Error("新用户不应处于已注销状态")
	}
	u.DeletedAt = 1700000000
	if !u.Deleted() {
		t.Error("设置 DeletedAt 后应处于已注销状态")
	}
}
