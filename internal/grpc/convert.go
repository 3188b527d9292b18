package grpc

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/catsurvey/internal/repository/models"
	"github.com/godilite/catsurvey/internal/service"
)

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func toList[T any](items []T) (*structpb.ListValue, error) {
	values := make([]any, 0, len(items))
	for _, item := range items {
		s, err := toStruct(item)
		if err != nil {
			return nil, err
		}
		values = append(values, s.AsMap())
	}
	return structpb.NewList(values)
}

// parseConfigUpdate reads category_id and the optional editable fields.
// Field names match the JSON form of models.CategoryConfig. A null
// last_processed_close_time clears the watermark; a string sets it.
func parseConfigUpdate(req *structpb.Struct) (service.ConfigUpdate, error) {
	fields := req.GetFields()

	id, ok, err := intField(fields, "category_id")
	if err != nil {
		return service.ConfigUpdate{}, err
	}
	if !ok || id <= 0 {
		return service.ConfigUpdate{}, fmt.Errorf("category_id is required")
	}
	upd := service.ConfigUpdate{CategoryID: id}

	if v, ok, err := intField(fields, "survey_type"); err != nil {
		return service.ConfigUpdate{}, err
	} else if ok {
		st := models.SurveyType(v)
		upd.SurveyType = &st
	}
	if v, ok, err := intField(fields, "sample_rate_percent"); err != nil {
		return service.ConfigUpdate{}, err
	} else if ok {
		rate := int(v)
		upd.SampleRate = &rate
	}
	if v, ok, err := intField(fields, "delay_days"); err != nil {
		return service.ConfigUpdate{}, err
	} else if ok {
		delay := int(v)
		upd.DelayDays = &delay
	}

	if v, ok := fields["last_processed_close_time"]; ok {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NullValue:
			upd.ClearWatermark = true
		case *structpb.Value_StringValue:
			wm, err := parseTimestamp(kind.StringValue)
			if err != nil {
				return service.ConfigUpdate{}, err
			}
			upd.Watermark = &wm
		default:
			return service.ConfigUpdate{}, fmt.Errorf("last_processed_close_time must be a timestamp string or null")
		}
	}

	return upd, nil
}

func intField(fields map[string]*structpb.Value, name string) (int64, bool, error) {
	v, ok := fields[name]
	if !ok {
		return 0, false, nil
	}
	num, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
	f := num.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false, fmt.Errorf("%s must be an integer", name)
	}
	return int64(f), true, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("watermark %q is not a valid timestamp", s)
}
