package common

// Remote collection names. The layout mirrors the managed backend:
// users/{id}, chatRooms/{sortedPairId}, chatRooms/{sortedPairId}/messages/{autoId}.
const (
	UsersCollection = "users"
	ChatRoomsColl   = "chatRooms"
	MessagesSubColl = "messages"
)
