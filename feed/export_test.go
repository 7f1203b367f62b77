package feed

var WithPriority = withPriority
