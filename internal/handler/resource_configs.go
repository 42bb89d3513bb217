package handler

// Column whitelists for the marketplace tables.
var (
	UsersResource = ResourceConfig{
		Key:       []Field{{"id", KindUint}},
		Filters:   []Field{{"email", KindString}, {"username", KindString}},
		Updatable: []Field{{"full_name", KindString}, {"username", KindString}, {"avatar_url", KindString}, {"bio", KindString}},
		OrderBy:   "id ASC",
	}

	ItemsResource = ResourceConfig{
		Key:     []Field{{"id", KindUUID}},
		Filters: []Field{{"user_id", KindUint}, {"category_id", KindUUID}, {"status", KindString}},
		Updatable: []Field{
			{"title", KindString}, {"description", KindString}, {"price", KindFloat},
			{"condition", KindString}, {"brand", KindString}, {"size", KindString}, {"status", KindString},
		},
		OrderBy: "create_at DESC",
	}

	CategoriesResource = ResourceConfig{
		Key:       []Field{{"id", KindUUID}},
		Updatable: []Field{{"name", KindString}},
		OrderBy:   "name ASC",
	}

	FavoritesResource = ResourceConfig{
		Key:     []Field{{"user_id", KindUint}, {"item_id", KindUUID}},
		Filters: []Field{{"user_id", KindUint}, {"item_id", KindUUID}},
	}

	WalletsResource = ResourceConfig{
		Key:         []Field{{"user_id", KindUint}},
		Filters:     []Field{{"user_id", KindUint}},
		Updatable:   []Field{{"balance", KindFloat}},
		TouchColumn: "updated_at",
	}

	MessagesResource = ResourceConfig{
		Key:     []Field{{"id", KindUUID}},
		Filters: []Field{{"sender_id", KindUint}, {"receiver_id", KindUint}, {"item_id", KindUUID}},
		OrderBy: "created_at ASC",
	}

	OrdersResource = ResourceConfig{
		Key:       []Field{{"id", KindUUID}},
		Filters:   []Field{{"buyer_id", KindUint}, {"seller_id", KindUint}, {"status", KindString}},
		Updatable: []Field{{"status", KindString}},
		OrderBy:   "create_at DESC",
	}

	ReviewsResource = ResourceConfig{
		Key:       []Field{{"id", KindUUID}},
		Filters:   []Field{{"reviewer_id", KindUint}, {"reviewed_id", KindUint}, {"order_id", KindUUID}},
		Updatable: []Field{{"rating", KindInt}, {"comment", KindString}},
		OrderBy:   "created_at DESC",
	}

	AddressesResource = ResourceConfig{
		Key:     []Field{{"id", KindUUID}},
		Filters: []Field{{"user_id", KindUint}},
		Updatable: []Field{
			{"full_name", KindString}, {"phone_number", KindString}, {"street_address", KindString},
			{"city", KindString}, {"postal_code", KindString},
		},
		OrderBy: "created_at DESC",
	}

	PaymentsResource = ResourceConfig{
		Key:       []Field{{"id", KindUUID}},
		Filters:   []Field{{"order_id", KindUUID}, {"payment_status", KindString}},
		Updatable: []Field{{"payment_status", KindString}},
		OrderBy:   "created_at DESC",
	}

	NotificationsResource = ResourceConfig{
		Key:     []Field{{"id", KindUUID}},
		Filters: []Field{{"user_id", KindUint}, {"is_read", KindBool}},
		OrderBy: "created_at DESC",
	}

	ImagesResource = ResourceConfig{
		Key:       []Field{{"id", KindUUID}},
		Filters:   []Field{{"item_id", KindUUID}},
		Updatable: []Field{{"image_url", KindString}},
	}

	TagsResource = ResourceConfig{
		Key:       []Field{{"id", KindUint}},
		Updatable: []Field{{"name", KindString}},
		OrderBy:   "name ASC",
	}

	ItemTagsResource = ResourceConfig{
		Key:     []Field{{"item_id", KindUUID}, {"tag_id", KindUint}},
		Filters: []Field{{"item_id", KindUUID}, {"tag_id", KindUint}},
	}
)

// MarkRead is the change applied by PUT /notifications/read.
var MarkRead = map[string]interface{}{"is_read": true}
