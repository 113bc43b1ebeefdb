package models

// Group is the opt-in "all" membership list of a chat.
type Group struct {
	ChatID  int64
	Members []int64 // Members in join order, no duplicates.
}

// Has reports whether userID is a member.
func (g *Group) Has(userID int64) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Add appends userID. It returns false if userID was already a member.
func (g *Group) Add(userID int64) bool {
	if g.Has(userID) {
		return false
	}
	g.Members = append(g.Members, userID)
	return true
}

// Remove drops userID. It returns false if userID was not a member.
func (g *Group) Remove(userID int64) bool {
	for i, m := range g.Members {
		if m == userID {
			g.Members = append(g.Members[:i:i], g.Members[i+1:]...)
			return true
		}
	}
	return false
}
