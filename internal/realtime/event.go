package realtime

import (
	"strings"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
)

// RoomPrefix 按日期划分的推送房间前缀
const RoomPrefix = "room:lunch:"

// 服务端推送类型
const (
	TypeDepartment = "department"
	TypeLock       = "lock"
	TypeJoined     = "joined"
	TypeLeft       = "left"
	TypeError      = "error"
)

// 客户端事件
const (
	EventJoinDate  = "joinDate"
	EventLeaveDate = "leaveDate"
)

// RoomName 返回某日的房间名
func RoomName(date businessday.Date) string {
	return RoomPrefix + date.String()
}

// DateFromRoom 从房间名解析日期
func DateFromRoom(room string) (businessday.Date, bool) {
	if !strings.HasPrefix(room, RoomPrefix) {
		return businessday.Date{}, false
	}
	d, err := businessday.ParseDate(strings.TrimPrefix(room, RoomPrefix))
	if err != nil {
		return businessday.Date{}, false
	}
	return d, true
}

// Event 服务端推送给订阅者的消息
type Event struct {
	Type       string      `json:"type"`
	Department interface{} `json:"department,omitempty"`
	Lock       interface{} `json:"lock,omitempty"`
}

// DepartmentEvent 部门报餐变更消息
func DepartmentEvent(department interface{}) Event {
	return Event{Type: TypeDepartment, Department: department}
}

// LockEvent 锁定状态变更消息
func LockEvent(lock interface{}) Event {
	return Event{Type: TypeLock, Lock: lock}
}

// clientMessage 客户端发送的订阅指令
type clientMessage struct {
	Event string `json:"event"`
	Date  string `json:"date"`
}

// ackMessage 订阅确认 / 错误回执
type ackMessage struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Date    string `json:"date,omitempty"`
	Message string `json:"message,omitempty"`
}
