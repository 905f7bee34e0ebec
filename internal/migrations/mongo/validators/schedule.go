package validators

import "go.mongodb.org/mongo-driver/bson"

var ScheduleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"practitioner_id",
			"company_id",
			"date_from",
			"rules",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"practitioner_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"company_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"name": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"date_from": bson.M{
				"bsonType": "date",
			},

			"date_to": bson.M{
				"bsonType": "date",
			},

			"rules": bson.M{
				"bsonType": "array",
				"maxItems": 64,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"day_of_week", "hour_from", "hour_to"},
					"properties": bson.M{
						"day_of_week": bson.M{
							"bsonType": "int",
							"minimum":  0,
							"maximum":  6,
						},
						"hour_from": bson.M{
							"bsonType": []string{"double", "int"},
							"minimum":  0,
							"maximum":  24,
						},
						"hour_to": bson.M{
							"bsonType": []string{"double", "int"},
							"minimum":  0,
							"maximum":  24,
						},
						"effective_from": bson.M{
							"bsonType": "date",
						},
						"effective_to": bson.M{
							"bsonType": "date",
						},
					},
				},
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
