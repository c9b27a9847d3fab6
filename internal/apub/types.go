package apub

// ActivityType identifies the verbs this engine dispatches on. Anything
// outside this set is recognized as data but never mutates local state.
type ActivityType uint8

const (
	ActivityUnknown ActivityType = iota
	ActivityCreate
	ActivityUpdate
	ActivityDelete
	ActivityRemove
	ActivityFollow
	ActivityLike
	ActivityAccept
	ActivityReject
	ActivityTentativeAccept
	ActivityTentativeReject
	ActivityIgnore
	ActivityUndo
	ActivityAnnounce
)

var activityNames = map[ActivityType]string{
	ActivityCreate:          "Create",
	ActivityUpdate:          "Update",
	ActivityDelete:          "Delete",
	ActivityRemove:          "Remove",
	ActivityFollow:          "Follow",
	ActivityLike:            "Like",
	ActivityAccept:          "Accept",
	ActivityReject:          "Reject",
	ActivityTentativeAccept: "TentativeAccept",
	ActivityTentativeReject: "TentativeReject",
	ActivityIgnore:          "Ignore",
	ActivityUndo:            "Undo",
	ActivityAnnounce:        "Announce",
}

var activityTypes = invert(activityNames)

func (t ActivityType) String() string {
	return activityNames[t]
}

func ParseActivityType(name string) (ActivityType, bool) {
	t, ok := activityTypes[name]
	return t, ok
}

type ObjectType uint8

const (
	ObjectUnknown ObjectType = iota
	ObjectNote
	ObjectArticle
	ObjectPerson
	ObjectGroup
	ObjectTombstone
	ObjectDocument
	ObjectImage
	ObjectLink
	ObjectCollection
	ObjectOrderedCollection
	ObjectCollectionPage
	ObjectOrderedCollectionPage
	ObjectQuestion
)

var objectNames = map[ObjectType]string{
	ObjectNote:                  "Note",
	ObjectArticle:               "Article",
	ObjectPerson:                "Person",
	ObjectGroup:                 "Group",
	ObjectTombstone:             "Tombstone",
	ObjectDocument:              "Document",
	ObjectImage:                 "Image",
	ObjectLink:                  "Link",
	ObjectCollection:            "Collection",
	ObjectOrderedCollection:     "OrderedCollection",
	ObjectCollectionPage:        "CollectionPage",
	ObjectOrderedCollectionPage: "OrderedCollectionPage",
	ObjectQuestion:              "Question",
}

var objectTypes = invert(objectNames)

func (t ObjectType) String() string {
	return objectNames[t]
}

func ParseObjectType(name string) (ObjectType, bool) {
	t, ok := objectTypes[name]
	return t, ok
}

func invert[T comparable](m map[T]string) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
