package repository

import (
	"database/sql"

	"github.com/hitoshi/vitafeed/internal/model"
)

// scanRowは共通エンベロープ（id, user_id, visibility, created_at）に続けて
// payloadColsと同じ順序でペイロードカラムを読み取る。

var recordKindSpecs = []recordKindSpec{
	{
		kind:        model.KindVitalRecord,
		table:       "vital_records",
		payloadCols: "condition_score, note",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.VitalPayload
			var note sql.NullString
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.ConditionScore, &note); err != nil {
				return it, err
			}
			p.Note = note.String
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindMealRecord,
		table:       "meal_records",
		payloadCols: "meal_type, name, calories",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.MealPayload
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.MealType, &p.Name, &p.Calories); err != nil {
				return it, err
			}
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindBloodPressureRecord,
		table:       "blood_pressure_records",
		payloadCols: "systolic, diastolic, pulse",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.BloodPressurePayload
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.Systolic, &p.Diastolic, &p.Pulse); err != nil {
				return it, err
			}
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindHeartRateRecord,
		table:       "heart_rate_records",
		payloadCols: "bpm",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.HeartRatePayload
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.BPM); err != nil {
				return it, err
			}
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindTemperatureRecord,
		table:       "temperature_records",
		payloadCols: "temperature",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.TemperaturePayload
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.Temperature); err != nil {
				return it, err
			}
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindWeightRecord,
		table:       "weight_records",
		payloadCols: "weight_kg",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.WeightPayload
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.WeightKg); err != nil {
				return it, err
			}
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindBodyFatRecord,
		table:       "body_fat_records",
		payloadCols: "body_fat_percent",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.BodyFatPayload
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.BodyFatPercent); err != nil {
				return it, err
			}
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindBloodGlucoseRecord,
		table:       "blood_glucose_records",
		payloadCols: "glucose_mg_dl, timing",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.BloodGlucosePayload
			var timing sql.NullString
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.GlucoseMgDl, &timing); err != nil {
				return it, err
			}
			p.Timing = timing.String
			it.Payload = p
			return it, nil
		},
	},
	{
		kind:        model.KindSpO2Record,
		table:       "spo2_records",
		payloadCols: "spo2_percent",
		scanRow: func(rows *sql.Rows) (model.TimelineItem, error) {
			var it model.TimelineItem
			var p model.SpO2Payload
			if err := rows.Scan(&it.ID, &it.OwnerID, &it.Visibility, &it.CreatedAt,
				&p.SpO2Percent); err != nil {
				return it, err
			}
			it.Payload = p
			return it, nil
		},
	},
}

// NewRecordStores は全健康記録種別のPostgresRecordStoreを生成して返す。
// 返り値の順序はタイムラインのマージ結果には影響しない（マージ後にソートされる）。
func NewRecordStores(db *sql.DB) []*PostgresRecordStore {
	stores := make([]*PostgresRecordStore, 0, len(recordKindSpecs))
	for _, spec := range recordKindSpecs {
		stores = append(stores, newPostgresRecordStore(db, spec))
	}
	return stores
}
