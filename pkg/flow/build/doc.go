// Package build turns an ordered list of oracle predictions into the screens
// and connections of a flow.
//
// A build runs two passes over the predictions, in order:
//
//  1. [Deduplicate] maps every prediction to a screen, creating a screen the
//     first time a frame index is seen and reusing it afterwards.
//  2. [Resolver.Resolve] walks adjacent prediction pairs and asks the graph to
//     connect the earlier screen to the later one when the gap between them
//     is below MaxGap and the screens differ.
//
// [Build] runs both after [ValidatePredictions] has checked that every index
// addresses a supplied frame. The graph applies the connection merge rule, so
// a build can run again against a flow loaded from storage and only promote
// or add rows.
package build
