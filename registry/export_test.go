package registry

var FormatGrowing = formatGrowing
