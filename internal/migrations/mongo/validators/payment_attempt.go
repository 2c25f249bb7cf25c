package validators

import "go.mongodb.org/mongo-driver/bson"

var paymentStates = []string{
	"INIT",
	"INTENT_CREATED",
	"CONFIRMING",
	"CONFIRMED_CLIENT",
	"CONFIRMED_BACKEND",
	"TERMINAL_SUCCESS",
	"FAILED",
	"AMBIGUOUS_NEEDS_SUPPORT",
}

var PaymentAttemptValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"from",
			"to",
			"amount",
			"recoverable",
			"recorded_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"payment_intent_id": bson.M{
				"bsonType":  "string",
				"maxLength": 255,
			},

			"from": bson.M{
				"enum": paymentStates,
			},

			"to": bson.M{
				"enum": paymentStates,
			},

			// minor units
			"amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"recoverable": bson.M{
				"bsonType": "bool",
			},

			"support_reference": bson.M{
				"bsonType": "string",
			},

			"error": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"recorded_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
