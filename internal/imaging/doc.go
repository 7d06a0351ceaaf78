// Package imaging loads microscopy frame sequences and prepares them for
// annotation.
//
// A frame sequence is a folder of images (TIFF by default) ordered by
// filename. LoadFolder reads only the image headers; pixels are decoded on
// demand through a FrameCache, which stretches 16-bit grayscale data to
// 8 bits for display. The package also draws spine boxes and labels onto a
// frame, zooms the view and crops a box for close inspection.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. Boxes are passed as
// image.Rectangle; functions accept rectangles built from either pair of
// opposite corners and normalize them with Canon.
//
// # Thread Safety
//
// FrameCache is safe for concurrent use. Every other function is stateless
// and never modifies the image it is given.
package imaging
