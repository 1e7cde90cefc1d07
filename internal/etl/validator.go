package etl

import (
	"fmt"
	"strings"

	"github.com/BartekS5/roomstat/pkg/models"
	"github.com/BartekS5/roomstat/pkg/utils"
)

// ParseRoom validates a raw room object. The name defaults to "" when absent
// or null and is always trimmed.
func ParseRoom(raw map[string]any) (models.Room, error) {
	id, err := requiredInt(Rooms, raw, "id")
	if err != nil {
		return models.Room{}, err
	}
	return models.Room{
		ID:   id,
		Name: strings.TrimSpace(utils.ConvertToString(raw["name"])),
	}, nil
}

// ParseStudent validates a raw student object. The room reference is read
// from "room_id", or from "room" when "room_id" is absent.
func ParseStudent(raw map[string]any) (models.Student, error) {
	id, err := requiredInt(Students, raw, "id")
	if err != nil {
		return models.Student{}, err
	}

	nameVal, err := required(Students, raw, "name")
	if err != nil {
		return models.Student{}, err
	}

	sexVal, err := required(Students, raw, "sex")
	if err != nil {
		return models.Student{}, err
	}
	sexStr, ok := sexVal.(string)
	if !ok {
		return models.Student{}, fieldErr(Students, "sex", fmt.Errorf("expected string, got %T", sexVal))
	}
	sex, err := models.ParseSex(sexStr)
	if err != nil {
		return models.Student{}, fieldErr(Students, "sex", err)
	}

	bdayVal, err := required(Students, raw, "birthday")
	if err != nil {
		return models.Student{}, err
	}
	birthday, err := utils.ConvertDate(bdayVal)
	if err != nil {
		return models.Student{}, fieldErr(Students, "birthday", err)
	}

	roomKey := "room_id"
	if _, ok := raw[roomKey]; !ok {
		roomKey = "room"
	}
	roomID, err := requiredInt(Students, raw, roomKey)
	if err != nil {
		return models.Student{}, err
	}

	return models.Student{
		ID:       id,
		Name:     strings.TrimSpace(utils.ConvertToString(nameVal)),
		Sex:      sex,
		Birthday: birthday,
		RoomID:   roomID,
	}, nil
}

func required(kind Kind, raw map[string]any, field string) (any, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil, fieldErr(kind, field, errMissing)
	}
	return v, nil
}

func requiredInt(kind Kind, raw map[string]any, field string) (int64, error) {
	v, err := required(kind, raw, field)
	if err != nil {
		return 0, err
	}
	i, err := utils.ConvertToInt(v)
	if err != nil {
		return 0, fieldErr(kind, field, err)
	}
	return i, nil
}
