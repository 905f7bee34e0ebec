package validators

import "go.mongodb.org/mongo-driver/bson"

var PractitionerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"company_id",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"time_zone": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"company_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
